package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leapstack-labs/leapcalc/internal/cli/config"
	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/leapstack-labs/leapcalc/internal/cli/testutil"
	"github.com/leapstack-labs/leapcalc/internal/worker"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		name  string
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{name: "eval", cmd: NewEvalCommand(), use: "eval [expression...]", flags: []string{"file", "trace"}},
		{name: "repl", cmd: NewREPLCommand(), use: "repl", flags: []string{"trace"}},
		{name: "watch", cmd: NewWatchCommand(), use: "watch <file>", flags: []string{"trace", "debounce"}},
		{name: "live", cmd: NewLiveCommand(), use: "live", flags: []string{"trace", "file"}},
		{name: "serve", cmd: NewServeCommand(), use: "serve", flags: []string{"port", "secure"}},
		{name: "history", cmd: NewHistoryCommand(), use: "history", flags: []string{"limit", "clear"}},
		{name: "vars", cmd: NewVarsCommand(), use: "vars"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestReadInput(t *testing.T) {
	file := filepath.Join(t.TempDir(), "input.calc")
	require.NoError(t, os.WriteFile(file, []byte("a = 2\na * 3\n"), 0600))

	tests := []struct {
		name    string
		stdin   string
		args    []string
		file    string
		want    string
		wantErr string
	}{
		{name: "args joined", args: []string{"1", "+", "2"}, want: "1 + 2"},
		{name: "stdin without args", stdin: "3 * 4\n", want: "3 * 4\n"},
		{name: "stdin with dash", stdin: "5", args: []string{"-"}, want: "5"},
		{name: "file", file: file, want: "a = 2\na * 3\n"},
		{name: "empty stdin", stdin: "  \n", wantErr: "no input"},
		{name: "file and args", file: file, args: []string{"1"}, wantErr: "cannot combine"},
		{name: "missing file", file: filepath.Join(t.TempDir(), "nope.calc"), wantErr: "failed to read input file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readInput(strings.NewReader(tt.stdin), tt.args, tt.file)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// loadConfig loads a temporary config file as the current configuration.
func loadConfig(t *testing.T, content string) *config.Config {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cfg, err := config.LoadConfig(testutil.WriteConfig(t, content), nil)
	require.NoError(t, err)
	return cfg
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestEvalCommand(t *testing.T) {
	loadConfig(t, "digits: 4\noutput: markdown\nvariables:\n  g: \"9.81\"\n")

	out, _, err := execute(t, NewEvalCommand(), "2 * g")
	require.NoError(t, err)
	assert.Contains(t, out, "- **Answer**: 19.62")
	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
}

func TestEvalCommandTrace(t *testing.T) {
	loadConfig(t, "output: markdown\n")

	out, _, err := execute(t, NewEvalCommand(), "--trace", "2 + 3 * 4")
	require.NoError(t, err)
	assert.Contains(t, out, "```")
	assert.Contains(t, out, "- **Answer**: 14")
	testutil.AssertValidMarkdown(t, out)
}

func TestEvalCommandFile(t *testing.T) {
	loadConfig(t, "output: json\nexact: true\n")

	file := filepath.Join(t.TempDir(), "group.calc")
	require.NoError(t, os.WriteFile(file, []byte("a = 1/3\nb = a + 1/6\nb"), 0600))

	out, _, err := execute(t, NewEvalCommand(), "-f", file)
	require.NoError(t, err)

	var result output.EvalOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "1 / 2", result.Answer)
	assert.Len(t, result.Lines, 3)
	assert.Equal(t, "a", result.Lines[0].Name)
}

func TestEvalCommandError(t *testing.T) {
	loadConfig(t, "output: markdown\n")

	out, _, err := execute(t, NewEvalCommand(), "1 / 0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluation failed")
	assert.True(t, formula.IsKind(err, formula.KindArithmetic))
	assert.Contains(t, out, "- **Error**:")
	assert.Contains(t, out, "division by zero")
}

func TestEvalCommandInvalidVariables(t *testing.T) {
	loadConfig(t, "variables:\n  bad: \"1 / 0\"\n")

	_, _, err := execute(t, NewEvalCommand(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid variables in config")
}

func TestHistoryCommand(t *testing.T) {
	loadConfig(t, "output: json\n")

	_, _, err := execute(t, NewEvalCommand(), "6 * 7")
	require.NoError(t, err)
	_, _, err = execute(t, NewEvalCommand(), "1 / 0")
	require.Error(t, err)

	out, _, err := execute(t, NewHistoryCommand())
	require.NoError(t, err)

	var entries []output.HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "1 / 0", entries[0].Input)
	assert.NotEmpty(t, entries[0].Error)
	assert.Equal(t, "6 * 7", entries[1].Input)
	assert.Equal(t, "42", entries[1].Answer)

	out, _, err = execute(t, NewHistoryCommand(), "--limit", "1")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Len(t, entries, 1)

	_, _, err = execute(t, NewHistoryCommand(), "--clear")
	require.NoError(t, err)

	out, _, err = execute(t, NewHistoryCommand())
	require.NoError(t, err)
	entries = nil
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Empty(t, entries)
}

func TestHistoryDisabled(t *testing.T) {
	loadConfig(t, "history: false\noutput: markdown\n")

	_, _, err := execute(t, NewEvalCommand(), "1 + 1")
	require.NoError(t, err)

	out, errOut, err := execute(t, NewHistoryCommand())
	require.NoError(t, err)
	assert.Contains(t, errOut, "history recording is disabled")
	assert.Contains(t, out, "(no history)")
}

func TestVarsCommand(t *testing.T) {
	loadConfig(t, "output: json\nvariables:\n  g: \"9.81\"\n  up: \"<0, 0, 1>\"\n")

	out, _, err := execute(t, NewVarsCommand())
	require.NoError(t, err)

	var vars []output.VariableInfo
	require.NoError(t, json.Unmarshal([]byte(out), &vars))
	require.Len(t, vars, 2)
	assert.Equal(t, output.VariableInfo{Name: "g", Value: "9.81", Kind: "number", Expr: "9.81"}, vars[0])
	assert.Equal(t, "up", vars[1].Name)
	assert.Equal(t, "vector", vars[1].Kind)
	assert.Empty(t, vars[1].DependsOn)
}

func TestVarsCommandDependencies(t *testing.T) {
	loadConfig(t, "output: json\nvariables:\n  g: \"10\"\n  mass: \"80\"\n  weight: \"mass * g\"\n")

	out, _, err := execute(t, NewVarsCommand())
	require.NoError(t, err)

	var vars []output.VariableInfo
	require.NoError(t, json.Unmarshal([]byte(out), &vars))
	require.Len(t, vars, 3)
	assert.Equal(t, output.VariableInfo{
		Name:      "weight",
		Value:     "800",
		Kind:      "number",
		Expr:      "mass * g",
		DependsOn: []string{"g", "mass"},
	}, vars[2])
}

func TestREPLUnsetCascades(t *testing.T) {
	s, out, _ := newTestSession(t, "variables:\n  g: \"10\"\n  mass: \"80\"\n  weight: \"mass * g\"\n  lift: \"weight / 2\"\n")
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	s.evaluate(cmd, "own = 1")

	out.Reset()
	assert.False(t, s.handleDotCommand(".unset mass own"))
	assert.Equal(t, "unset lift, mass, own, weight\n", out.String())
	assert.Equal(t, []string{"g"}, s.env.Names())

	out.Reset()
	assert.False(t, s.handleDotCommand(".unset nothing"))
	assert.Empty(t, out.String())
}

func newTestSession(t *testing.T, cfgContent string) (*replSession, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	if cfgContent == "" {
		config.ResetConfig()
	} else {
		loadConfig(t, cfgContent)
	}

	var out, errOut bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetContext(context.Background())

	cmdCtx := NewCommandContextWithoutStore(cmd)
	cmdCtx.Renderer = output.NewRenderer(&out, &errOut, output.ModeText)
	env, err := cmdCtx.NewEnvironment()
	require.NoError(t, err)

	return &replSession{cmdCtx: cmdCtx, env: env, graph: cmdCtx.VariableGraph(), out: &out, errOut: &errOut}, &out, &errOut
}

func TestREPLSession(t *testing.T) {
	s, out, errOut := newTestSession(t, "")
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	s.evaluate(cmd, "r = 3")
	s.evaluate(cmd, "r * 2")
	assert.Contains(t, out.String(), "6\n")

	out.Reset()
	assert.False(t, s.handleDotCommand(".vars"))
	assert.Contains(t, out.String(), "r")

	out.Reset()
	assert.False(t, s.handleDotCommand(".unset r"))
	assert.Empty(t, s.env.Names())
	assert.Equal(t, "unset r\n", out.String())

	s.evaluate(cmd, "r")
	assert.Contains(t, errOut.String(), "error: ")

	out.Reset()
	assert.False(t, s.handleDotCommand(".trace"))
	assert.True(t, s.trace)
	assert.Contains(t, out.String(), "trace on")

	errOut.Reset()
	assert.False(t, s.handleDotCommand(".unset"))
	assert.Contains(t, errOut.String(), "Usage: .unset")

	errOut.Reset()
	assert.False(t, s.handleDotCommand(".bogus"))
	assert.Contains(t, errOut.String(), "Unknown command: .bogus")

	out.Reset()
	assert.False(t, s.handleDotCommand(".help"))
	assert.Contains(t, out.String(), ".unset <name>")

	assert.True(t, s.handleDotCommand(".quit"))
	assert.True(t, s.handleDotCommand(".EXIT"))
}

func TestCompleter(t *testing.T) {
	env := formula.NewEnvironment()
	require.NoError(t, env.Preload("speed = 12"))

	c := newCompleter(env)
	line := []rune("sp")
	candidates, offset := c.Do(line, len(line))
	assert.Equal(t, 2, offset)

	var got []string
	for _, cand := range candidates {
		got = append(got, strings.TrimSpace(string(cand)))
	}
	assert.Contains(t, got, "eed")
}

func TestWatchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.calc")
	require.NoError(t, os.WriteFile(path, []byte("1"), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, 20*time.Millisecond, config.GetLogger(ctx), func() {
			changes.Add(1)
		})
	}()

	// Give the watcher time to register before writing.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("2"), 0600)
		return changes.Load() > 0
	}, 5*time.Second, 100*time.Millisecond)

	// Let callbacks from the writes above fire before sampling.
	var before int32
	require.Eventually(t, func() bool {
		before = changes.Load()
		time.Sleep(100 * time.Millisecond)
		return changes.Load() == before
	}, 5*time.Second, 10*time.Millisecond)

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.calc"), []byte("3"), 0600))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, before, changes.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watchFile did not stop")
	}
}

func TestRenderWatchResult(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	env := formula.NewEnvironment()
	group, err := env.EvaluateGroup("2 ^ 10")
	require.NoError(t, err)

	res := worker.Result{Revision: 3, Input: "2 ^ 10", Group: group, Elapsed: time.Millisecond}
	renderWatchResult(tr.Renderer, "input.calc", res, false)
	assert.Contains(t, tr.Output(), "## input.calc (revision 3,")
	assert.Contains(t, tr.Output(), "- **Answer**: 1024")
	testutil.AssertValidMarkdown(t, tr.Output())
}
