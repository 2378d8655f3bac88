package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapcalc/internal/dag"
	"github.com/leapstack-labs/leapcalc/pkg/token"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Digits < 0 || c.Digits > MaxDigits {
		return fmt.Errorf("digits must be between 0 and %d, got %d", MaxDigits, c.Digits)
	}
	if !slices.Contains(OutputModes, c.Output) {
		return fmt.Errorf("unknown output format %q (expected one of %s)", c.Output, strings.Join(OutputModes, ", "))
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve.port out of range: %d", c.Serve.Port)
	}
	for name := range c.Variables {
		if !token.IsValidName(name) {
			return fmt.Errorf("invalid variable name %q in variables\nHint: names start with a letter or underscore and must not shadow a builtin", name)
		}
	}
	if hasCycle, path := dag.FromBindings(c.Variables).HasCycle(); hasCycle {
		return fmt.Errorf("variables reference each other in a cycle: %s", strings.Join(path, " -> "))
	}
	return nil
}

// ValidateHistory checks that a history path is configured when history is on.
func (c *Config) ValidateHistory() error {
	if c.History && c.HistoryPath == "" {
		return fmt.Errorf("history is enabled but history_path is empty\nHint: set history_path or use --history=false")
	}
	return nil
}
