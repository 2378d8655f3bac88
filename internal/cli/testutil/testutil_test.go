package testutil

import (
	"os"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestRenderer(t *testing.T) {
	tr := NewTestRendererText()
	assert.Equal(t, output.ModeText, tr.EffectiveMode())
	assert.True(t, tr.IsTTY())

	tr.Success("done")
	assert.Contains(t, StripANSI(tr.Output()), "done")

	tr.Reset()
	assert.Empty(t, tr.Output())

	md := NewTestRendererAuto()
	assert.Equal(t, output.ModeMarkdown, md.EffectiveMode())
	md.Header(1, "Answers")
	AssertNoANSI(t, md.Output())
	AssertValidMarkdown(t, md.Output())
}

func TestWriteConfig(t *testing.T) {
	path := WriteConfig(t, "digits: 3")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "digits: 3"))
	assert.Contains(t, string(data), "history_path: ")
}
