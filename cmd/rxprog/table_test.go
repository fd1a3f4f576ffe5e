package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	f()
	w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestPrintTableAlignsColumns(t *testing.T) {
	out := captureStdout(t, func() {
		printTable([]string{"Device code", "Series name"}, [][]string{
			{"R5F", "RX600"},
			{"R5F1", "RX200"},
		})
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Device code"))
	assert.True(t, strings.HasPrefix(lines[1], strings.Repeat("=", len(lines[1]))))
	col := strings.Index(lines[0], "Series name")
	assert.Equal(t, col, strings.Index(lines[2], "RX600"))
	assert.Equal(t, col, strings.Index(lines[3], "RX200"))
}

func TestPrintTableEmptyRows(t *testing.T) {
	out := captureStdout(t, func() {
		printTable([]string{"Port name"}, nil)
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 2)
}
