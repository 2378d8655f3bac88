package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryFunctionDocumented(t *testing.T) {
	require.NoError(t, checkFunctionDocs())
}

func TestGenerateDocs(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, generateCLIDocs(filepath.Join(dir, "cli")))
	require.NoError(t, generateConfigDocs(filepath.Join(dir, "reference")))
	require.NoError(t, generateFunctionDocs(filepath.Join(dir, "reference")))

	index, err := os.ReadFile(filepath.Join(dir, "cli", "index.md"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "[`eval`](/cli/eval)")
	assert.Contains(t, string(index), "`LEAPCALC_SERVE_PORT`")

	eval, err := os.ReadFile(filepath.Join(dir, "cli", "eval.md"))
	require.NoError(t, err)
	assert.Contains(t, string(eval), "leapcalc eval [expression...]")
	assert.Contains(t, string(eval), "`--trace`")

	cfg, err := os.ReadFile(filepath.Join(dir, "reference", "configuration.md"))
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "`watch.debounce`")
	assert.Contains(t, string(cfg), "`100ms`")

	funcs, err := os.ReadFile(filepath.Join(dir, "reference", "functions.md"))
	require.NoError(t, err)
	assert.Contains(t, string(funcs), "`sum(var, from, to, expr)`")
	assert.Contains(t, string(funcs), generatedHeader)
}

func TestCleanExample(t *testing.T) {
	in := "  # comment\n  leapcalc eval 1\n\n    indented"
	assert.Equal(t, "# comment\nleapcalc eval 1\n\n  indented", cleanExample(in))
}
