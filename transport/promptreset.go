package transport

import (
	"bufio"
	"fmt"
	"io"
)

// PromptResetter asks a human to put the target into the requested mode
// and press Enter, for hosts with no GPIO wired to the target's reset
// pins. Grounded on the original implementation's note that reset can be
// a manual user action.
type PromptResetter struct {
	Out io.Writer
	In  *bufio.Reader
}

// NewPromptResetter wraps in for line-buffered reads and writes prompts
// to out.
func NewPromptResetter(out io.Writer, in io.Reader) *PromptResetter {
	return &PromptResetter{Out: out, In: bufio.NewReader(in)}
}

func (p *PromptResetter) ResetInto(mode ResetMode) error {
	fmt.Fprintf(p.Out, "reset the target into %s mode, then press Enter: ", mode)
	_, err := p.In.ReadString('\n')
	if err != nil {
		return fmt.Errorf("transport: prompt reset: %w", err)
	}
	return nil
}
