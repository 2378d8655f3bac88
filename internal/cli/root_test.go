package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapcalc/internal/cli/config"
	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/leapstack-labs/leapcalc/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Cleanup(config.ResetConfig)

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootCommands(t *testing.T) {
	cmd := NewRootCmd()

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"version", "eval", "repl", "watch", "live", "serve", "history", "vars", "completion"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "digits", "exact", "output", "verbose", "history"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestEvalFlags(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{
			name: "default digits",
			args: []string{"eval", "--history=false", "-o", "markdown", "1 / 3"},
			want: "- **Answer**: 0.3333333333",
		},
		{
			name: "digits flag",
			args: []string{"eval", "--history=false", "-o", "markdown", "--digits", "3", "2 / 3"},
			want: "- **Answer**: 0.667",
		},
		{
			name: "exact flag",
			args: []string{"eval", "--history=false", "-o", "markdown", "--exact", "1/3 + 1/6"},
			want: "- **Answer**: 1 / 2",
		},
		{
			name:  "stdin group",
			stdin: "v = <1, 2, 3>\nv . v",
			args:  []string{"eval", "--history=false", "-o", "markdown"},
			want:  "- **Answer**: 14",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, tt.stdin, tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
			testutil.AssertNoANSI(t, out)
		})
	}
}

func TestEvalJSON(t *testing.T) {
	out, _, err := run(t, "", "eval", "--history=false", "-o", "json", "sum(i, 1, 4, i^2)")
	require.NoError(t, err)

	var result output.EvalOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "30", result.Answer)
	assert.NotEmpty(t, result.Trace)
}

func TestEvalEnvOverride(t *testing.T) {
	t.Setenv("LEAPCALC_DIGITS", "2")
	t.Setenv("LEAPCALC_HISTORY", "false")

	out, _, err := run(t, "", "eval", "-o", "markdown", "1 / 3")
	require.NoError(t, err)
	assert.Contains(t, out, "- **Answer**: 0.33")
}

func TestInvalidConfig(t *testing.T) {
	_, _, err := run(t, "", "eval", "--history=false", "-o", "html", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestConfigFile(t *testing.T) {
	path := testutil.WriteConfig(t, "output: markdown\nvariables:\n  c: \"299792458\"\n")

	out, _, err := run(t, "", "--config", path, "eval", "c / 1000")
	require.NoError(t, err)
	assert.Contains(t, out, "- **Answer**: 299792.458")
}

func TestVerboseLogging(t *testing.T) {
	path := testutil.WriteConfig(t, "history: false\n")

	_, errOut, err := run(t, "", "--config", path, "-v", "eval", "1")
	require.NoError(t, err)
	assert.Contains(t, errOut, "using config file")
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, _, err := run(t, "", "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "leapcalc")
		})
	}

	_, _, err := run(t, "", "completion", "tcsh")
	assert.Error(t, err)
}

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, config.DefaultDigits, GetConfig(ctx).Digits)
	assert.NotNil(t, GetRenderer(ctx))
}
