package transport

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptResetterPrintsModeAndWaitsForEnter(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("\n")
	r := NewPromptResetter(&out, in)

	err := r.ResetInto(ModeBoot)
	require.NoError(t, err)
	assert.Contains(t, out.String(), ModeBoot.String())
}

func TestResetModeString(t *testing.T) {
	assert.Equal(t, "single-chip", ModeSingleChip.String())
	assert.Equal(t, "boot", ModeBoot.String())
	assert.Equal(t, "user-boot", ModeUserBoot.String())
}
