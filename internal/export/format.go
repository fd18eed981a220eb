package export

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is a report serialization.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts a format name case-insensitively. "yml" is an alias
// for yaml and "" selects csv.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown export format: %q", s)
	}
}

// FormatFromPath guesses the format from an output file extension,
// falling back to def.
func FormatFromPath(path string, def Format) Format {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return def
	}
	f, err := ParseFormat(ext)
	if err != nil {
		return def
	}
	return f
}

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	default:
		return ".csv"
	}
}

// ErrorReportPath returns the companion error report path for an entry
// report: "<base>_errors.<ext>".
func ErrorReportPath(outPath string) string {
	return companionPath(outPath, "_errors")
}

// AccessReportPath returns the companion access-control report path for an
// entry report: "<base>_acl.<ext>".
func AccessReportPath(outPath string) string {
	return companionPath(outPath, "_acl")
}

func companionPath(outPath, suffix string) string {
	ext := filepath.Ext(outPath)
	return strings.TrimSuffix(outPath, ext) + suffix + ext
}
