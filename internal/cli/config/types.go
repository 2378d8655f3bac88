// Package config provides configuration management for the leapcalc CLI.
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/leapstack-labs/leapcalc/internal/dag"
	"github.com/leapstack-labs/leapcalc/pkg/rational"
)

// Config holds all CLI configuration options.
type Config struct {
	Digits      int               `koanf:"digits"`
	Exact       bool              `koanf:"exact"`
	Output      string            `koanf:"output"`
	Verbose     bool              `koanf:"verbose"`
	History     bool              `koanf:"history"`
	HistoryPath string            `koanf:"history_path"`
	Variables   map[string]string `koanf:"variables"`
	Watch       WatchConfig       `koanf:"watch"`
	Serve       ServeConfig       `koanf:"serve"`
}

// WatchConfig holds configuration for the watch command.
type WatchConfig struct {
	Debounce time.Duration `koanf:"debounce"`
}

// ServeConfig holds configuration for the HTTP server.
type ServeConfig struct {
	Port          int    `koanf:"port"`
	SessionSecret string `koanf:"session_secret"`
	Secure        bool   `koanf:"secure"` // cookies only over HTTPS
}

// Default configuration values.
const (
	DefaultDigits   = rational.DefaultDigits
	DefaultOutput   = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultDebounce = 100 * time.Millisecond
	DefaultPort     = 8765
	MaxDigits       = 1000
)

// OutputModes lists the accepted values of the output key.
var OutputModes = []string{"auto", "text", "markdown", "json", "yaml"}

// DefaultHistoryPath returns the history database location under the user
// config directory, falling back to the working directory.
func DefaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".leapcalc", "history.db")
	}
	return filepath.Join(dir, "leapcalc", "history.db")
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Digits:      DefaultDigits,
		Output:      DefaultOutput,
		History:     true,
		HistoryPath: DefaultHistoryPath(),
		Watch:       WatchConfig{Debounce: DefaultDebounce},
		Serve:       ServeConfig{Port: DefaultPort},
	}
}

// Prelude renders the configured variables as a group of bindings, one
// "name = expression" line per variable. A variable follows the variables its
// expression references; otherwise name order is kept.
func (c *Config) Prelude() string {
	if len(c.Variables) == 0 {
		return ""
	}

	var names []string
	if order, err := dag.FromBindings(c.Variables).TopologicalSort(); err == nil {
		for _, n := range order {
			names = append(names, n.Name)
		}
	} else {
		// Cycles are rejected by Validate; fall back to name order.
		for name := range c.Variables {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = name + " = " + c.Variables[name]
	}
	return strings.Join(lines, "\n")
}
