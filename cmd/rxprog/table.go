package main

import (
	"fmt"
	"strings"
)

// printTable renders the headings, a separator rule, then the rows, as
// aligned, space-padded columns, grounded on the original CLI's
// print_table column-width algorithm.
func printTable(headings []string, rows [][]string) {
	const columnSeparator = "    "

	widths := make([]int, len(headings))
	for i, h := range headings {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	total := 0
	for _, w := range widths {
		total += w
	}
	total += (len(widths) - 1) * len(columnSeparator)

	printRow := func(row []string) {
		var b strings.Builder
		for i, cell := range row {
			fmt.Fprintf(&b, "%-*s%s", widths[i], cell, columnSeparator)
		}
		fmt.Println(strings.TrimRight(b.String(), " "))
	}

	printRow(headings)
	fmt.Println(strings.Repeat("=", total))
	for _, row := range rows {
		printRow(row)
	}
}
