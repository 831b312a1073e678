// Package report renders and persists run summaries.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// Format types for summary output.
type Format string

const (
	// FormatJSON writes two-space indented JSON.
	FormatJSON Format = "json"
	// FormatYAML writes YAML.
	FormatYAML Format = "yaml"
	// FormatTable writes the human-readable tables.
	FormatTable Format = "table"
)

// ParseFormat maps a name to a Format. An empty name yields FormatJSON.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "table", "text":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown report format %q", name)
	}
}

// FormatForPath picks the format implied by a file extension, falling back to def.
func FormatForPath(path string, def Format) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	case ".txt":
		return FormatTable
	default:
		return def
	}
}

// Encode writes data to w in format. Table output is only defined for run
// summaries and is handled by Render.
func Encode(w io.Writer, data any, format Format) error {
	switch format {
	case FormatJSON, "":
		encoder := json.NewEncoder(w)
		encoder.SetEscapeHTML(false)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	case FormatYAML:
		out, err := yaml.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("format %q cannot encode %T", format, data)
	}
}

// WriteFile writes data to path in format, creating parent directories and
// replacing the file atomically.
func WriteFile(path string, data any, format Format) error {
	var buf bytes.Buffer
	if err := Encode(&buf, data, format); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) // cleanup on failure
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
