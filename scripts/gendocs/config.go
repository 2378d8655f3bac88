package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapcalc/internal/cli/config"
)

// envPrefix is the environment variable prefix read by the config loader.
const envPrefix = config.EnvPrefix

// ConfigField represents a configuration key.
type ConfigField struct {
	Key         string
	Env         string
	Type        string
	Default     string
	Description string
}

// configFields returns the configuration keys with defaults taken from
// config.Default.
func configFields() []ConfigField {
	def := config.Default()
	fields := []ConfigField{
		{Key: "digits", Type: "int", Default: strconv.Itoa(def.Digits), Description: fmt.Sprintf("Decimal places of answers (0 to %d)", config.MaxDigits)},
		{Key: "exact", Type: "bool", Default: strconv.FormatBool(def.Exact), Description: "Show answers as exact fractions"},
		{Key: "output", Type: "string", Default: def.Output, Description: "Output format: " + strings.Join(config.OutputModes, ", ")},
		{Key: "verbose", Type: "bool", Default: strconv.FormatBool(def.Verbose), Description: "Debug logging on stderr"},
		{Key: "history", Type: "bool", Default: strconv.FormatBool(def.History), Description: "Record evaluations in the history database"},
		{Key: "history_path", Type: "string", Default: "<user config dir>/leapcalc/history.db", Description: "SQLite history database"},
		{Key: "variables", Type: "map[string]string", Description: "Variables bound before every evaluation, as name: expression"},
		{Key: "watch.debounce", Type: "duration", Default: def.Watch.Debounce.String(), Description: "Delay after the last file change before re-evaluating"},
		{Key: "serve.port", Type: "int", Default: strconv.Itoa(def.Serve.Port), Description: "HTTP API port"},
		{Key: "serve.session_secret", Type: "string", Description: "Cookie signing key; random per process when empty"},
		{Key: "serve.secure", Type: "bool", Default: strconv.FormatBool(def.Serve.Secure), Description: "Mark session cookies Secure; enable behind HTTPS"},
	}
	for i, f := range fields {
		if f.Key == "variables" {
			continue
		}
		fields[i].Env = envPrefix + strings.ToUpper(strings.ReplaceAll(f.Key, ".", "_"))
	}
	return fields
}

// generateConfigDocs generates the configuration reference page.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "leapcalc configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("leapcalc reads " + InlineCode("leapcalc.yaml") + " (or " + InlineCode("leapcalc.yml") + ") from the working directory, or the file named by " + InlineCode("--config") + ".")

	w.Header(2, "Keys")
	headers := []string{"Key", "Type", "Default", "Environment", "Description"}
	var rows [][]string
	for _, f := range configFields() {
		def := ""
		if f.Default != "" {
			def = InlineCode(f.Default)
		}
		env := ""
		if f.Env != "" {
			env = InlineCode(f.Env)
		}
		rows = append(rows, []string{InlineCode(f.Key), f.Type, def, env, cleanDescription(f.Description)})
	}
	w.Table(headers, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `digits: 6
output: text
variables:
  g: "9.81"
  up: "<0, 0, 1>"
  weight: "80 * g"
watch:
  debounce: 250ms
serve:
  port: 8765`)

	w.Paragraph("Variables are evaluated after the variables they reference, so they may be listed in any order. References must not form a cycle.")

	filename := filepath.Join(outDir, "configuration.md")
	if err := os.WriteFile(filename, w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated configuration.md")
	return nil
}
