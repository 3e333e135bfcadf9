// Package driver orchestrates the per-file pipeline: read bytes, detect
// encoding/line-endings/indentation, convert, and write the result back with
// the detected (or overridden) format so every untouched byte survives.
package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/agentic-research/f2format/internal/config"
	"github.com/agentic-research/f2format/internal/convert"
	"github.com/agentic-research/f2format/internal/pydetect"
	"github.com/agentic-research/f2format/internal/pyparse"
)

// Driver runs conversions under one resolved configuration. It is safe for
// concurrent use: every invocation owns its own buffers.
type Driver struct {
	Config  config.Config
	Version pyparse.Version
}

// Report describes what a conversion did (or, in dry-run mode, would do).
type Report struct {
	Path        string `json:"path"`
	Changed     bool   `json:"changed"`
	Encoding    string `json:"encoding"`
	Linesep     string `json:"linesep"`
	Indentation string `json:"indentation"`
}

// ConvertFile converts path in place. The file is left untouched when the
// conversion fails or changes nothing. Atomicity of the write itself comes
// from a temp-file rename; recoverability comes from archiving first.
func (d *Driver) ConvertFile(path string) error {
	report, data, err := d.process(path)
	if err != nil {
		return err
	}
	if !report.Changed {
		return nil
	}
	return writeAtomic(path, data)
}

// Preview runs everything except the write.
func (d *Driver) Preview(path string) (Report, error) {
	report, _, err := d.process(path)
	return report, err
}

var linesepRe = regexp.MustCompile(`\r\n|\r|\n`)

func (d *Driver) process(path string) (Report, []byte, error) {
	report := Report{Path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		return report, nil, fmt.Errorf("read %s: %w", path, err)
	}

	encName, enc := pydetect.DetectEncoding(raw)
	if d.Config.Encoding != "" {
		encName = d.Config.Encoding
		enc = pydetect.Lookup(encName)
	}
	if enc == nil {
		return report, nil, fmt.Errorf("%s: unknown encoding %q", path, encName)
	}
	report.Encoding = encName

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return report, nil, fmt.Errorf("decode %s as %s: %w", path, encName, err)
	}
	text := string(decoded)

	detectedSep := pydetect.DetectLinesep(text)
	sep := detectedSep
	if d.Config.Linesep != "" {
		sep = d.Config.Linesep
	}
	report.Linesep = linesepName(sep)

	report.Indentation = pydetect.DetectIndentation(text)
	if d.Config.Indentation != "" {
		report.Indentation = d.Config.Indentation
	}

	converted, err := convert.Convert([]byte(text), convert.Options{
		Filename:      path,
		SourceVersion: d.Version,
		PEP8:          d.Config.PEP8,
	})
	if err != nil {
		return report, nil, err
	}

	if sep != detectedSep {
		converted = linesepRe.ReplaceAllString(converted, sep)
	}
	report.Changed = converted != text

	encoded, err := enc.NewEncoder().Bytes([]byte(converted))
	if err != nil {
		return report, nil, fmt.Errorf("encode %s as %s: %w", path, encName, err)
	}
	return report, encoded, nil
}

// writeAtomic writes data over path via a temp file in the same directory,
// preserving the original permissions.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".f2format-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}

	if info, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmpName, info.Mode())
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp to %s: %w", path, err)
	}
	return nil
}

func linesepName(sep string) string {
	switch sep {
	case "\r\n":
		return "CRLF"
	case "\r":
		return "CR"
	default:
		return "LF"
	}
}
