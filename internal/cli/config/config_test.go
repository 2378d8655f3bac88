package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leapcalc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// TestLoadConfig_Defaults verifies the defaults when nothing else is set.
func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()

	cfg, err := LoadConfig(writeConfig(t, "{}\n"), nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultDigits, cfg.Digits)
	assert.False(t, cfg.Exact)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.True(t, cfg.History)
	assert.NotEmpty(t, cfg.HistoryPath)
	assert.Equal(t, DefaultDebounce, cfg.Watch.Debounce)
	assert.Equal(t, DefaultPort, cfg.Serve.Port)
	assert.False(t, cfg.Serve.Secure, "plain HTTP sessions must work out of the box")
	assert.Same(t, cfg, GetCurrentConfig())
}

// TestLoadConfig_File verifies that every key can be set from the config file.
func TestLoadConfig_File(t *testing.T) {
	ResetConfig()

	path := writeConfig(t, `digits: 4
exact: true
output: json
history: false
history_path: /tmp/calc.db
variables:
  g: "9.81"
  half: "1 / 2"
watch:
  debounce: 250ms
serve:
  port: 9000
  session_secret: s3cret
  secure: true
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, GetConfigFileUsed())
	assert.Equal(t, 4, cfg.Digits)
	assert.True(t, cfg.Exact)
	assert.Equal(t, "json", cfg.Output)
	assert.False(t, cfg.History)
	assert.Equal(t, "/tmp/calc.db", cfg.HistoryPath)
	assert.Equal(t, map[string]string{"g": "9.81", "half": "1 / 2"}, cfg.Variables)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, 9000, cfg.Serve.Port)
	assert.Equal(t, "s3cret", cfg.Serve.SessionSecret)
	assert.True(t, cfg.Serve.Secure)
}

// TestLoadConfig_FlagPrecedence tests that flags override env vars and config file.
func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()

	path := writeConfig(t, "digits: 3\n")
	t.Setenv("LEAPCALC_DIGITS", "5")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("digits", DefaultDigits, "decimal places")
	require.NoError(t, flags.Set("digits", "7"))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Digits, "flag value should override config file and env var")
}

// TestLoadConfig_EnvPrecedenceOverFile tests that env vars override config file.
func TestLoadConfig_EnvPrecedenceOverFile(t *testing.T) {
	ResetConfig()

	path := writeConfig(t, "digits: 3\nserve:\n  port: 9000\n")
	t.Setenv("LEAPCALC_DIGITS", "5")
	t.Setenv("LEAPCALC_SERVE_PORT", "9100")
	t.Setenv("LEAPCALC_WATCH_DEBOUNCE", "1s")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Digits, "env var should override config file")
	assert.Equal(t, 9100, cfg.Serve.Port)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
}

// TestLoadConfig_FlagNotSetUsesEnv tests that unset flags fall back to env vars.
func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	ResetConfig()

	path := writeConfig(t, "output: text\n")
	t.Setenv("LEAPCALC_OUTPUT", "markdown")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("output", "o", "", "output format")

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "markdown", cfg.Output, "env var should be used when flag is not set")
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"negative digits", "digits: -1\n", "digits must be between"},
		{"unknown output", "output: csv\n", "unknown output format"},
		{"bad variable name", "variables:\n  sin: \"1\"\n", "invalid variable name"},
		{"variable cycle", "variables:\n  a: \"b + 1\"\n  b: \"a * 2\"\n", "cycle"},
		{"bad duration", "watch:\n  debounce: soon\n", "unable to decode config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			_, err := LoadConfig(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	ResetConfig()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"LEAPCALC_DIGITS", "digits"},
		{"LEAPCALC_HISTORY_PATH", "history_path"},
		{"LEAPCALC_SERVE_PORT", "serve.port"},
		{"LEAPCALC_SERVE_SESSION_SECRET", "serve.session_secret"},
		{"LEAPCALC_SERVE_SECURE", "serve.secure"},
		{"LEAPCALC_WATCH_DEBOUNCE", "watch.debounce"},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			assert.Equal(t, tt.want, envKey(tt.env))
		})
	}
}

func TestConfig_Prelude(t *testing.T) {
	cfg := &Config{Variables: map[string]string{"b": "a * 2", "a": "3"}}
	assert.Equal(t, "a = 3\nb = a * 2", cfg.Prelude())
	assert.Empty(t, (&Config{}).Prelude())

	// Referenced variables come first regardless of name.
	cfg = &Config{Variables: map[string]string{"area": "side ^ 2", "side": "4", "unit": "1"}}
	assert.Equal(t, "side = 4\narea = side ^ 2\nunit = 1", cfg.Prelude())
}

func TestConfig_ValidateHistory(t *testing.T) {
	assert.NoError(t, (&Config{History: false}).ValidateHistory())
	assert.NoError(t, (&Config{History: true, HistoryPath: "h.db"}).ValidateHistory())
	assert.Error(t, (&Config{History: true}).ValidateHistory())
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "fallback logger should not be nil")

	logger := slog.New(slog.DiscardHandler)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
	assert.Equal(t, loggerKey{}, LoggerKey())
}
