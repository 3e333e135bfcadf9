// Package config carries the immutable per-run configuration and its
// resolution chain: explicit flags win over environment variables, which win
// over an optional HCL defaults file, which wins over built-in defaults.
// Format-detection results fill whatever is still unset per file.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/spf13/cast"
)

// Environment variable names. Every one is overridable by an explicit flag.
const (
	EnvQuiet         = "F2FORMAT_QUIET"
	EnvConcurrency   = "F2FORMAT_CONCURRENCY"
	EnvDoArchive     = "F2FORMAT_DO_ARCHIVE"
	EnvArchivePath   = "F2FORMAT_ARCHIVE_PATH"
	EnvSourceVersion = "F2FORMAT_SOURCE_VERSION"
	EnvEncoding      = "F2FORMAT_ENCODING"
	EnvLinesep       = "F2FORMAT_LINESEP"
	EnvIndent        = "F2FORMAT_INDENT"
	EnvPEP8          = "F2FORMAT_PEP8"
)

// DefaultsFile is the optional HCL file consulted in the working directory.
const DefaultsFile = ".f2format.hcl"

// Config is the resolved configuration for one run. Empty string fields mean
// "detect per file".
type Config struct {
	Quiet         bool
	Concurrency   int
	DoArchive     bool
	ArchivePath   string
	SourceVersion string
	Encoding      string
	Linesep       string
	Indentation   string
	PEP8          bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Concurrency: runtime.NumCPU(),
		DoArchive:   true,
		ArchivePath: "archive",
		PEP8:        true,
	}
}

// fileConfig mirrors Config for HCL decoding; every attribute is optional.
type fileConfig struct {
	Quiet         *bool   `hcl:"quiet,optional"`
	Concurrency   *int    `hcl:"concurrency,optional"`
	Archive       *bool   `hcl:"archive,optional"`
	ArchivePath   *string `hcl:"archive_path,optional"`
	SourceVersion *string `hcl:"source_version,optional"`
	Encoding      *string `hcl:"encoding,optional"`
	Linesep       *string `hcl:"linesep,optional"`
	Indentation   *string `hcl:"indentation,optional"`
	PEP8          *bool   `hcl:"pep8,optional"`
}

// ApplyFile layers an HCL defaults file over cfg. A missing file is not an
// error; a malformed one is.
func ApplyFile(cfg Config, path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return cfg, nil
	}
	var fc fileConfig
	if err := hclsimple.DecodeFile(path, nil, &fc); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	if fc.Quiet != nil {
		cfg.Quiet = *fc.Quiet
	}
	if fc.Concurrency != nil {
		cfg.Concurrency = *fc.Concurrency
	}
	if fc.Archive != nil {
		cfg.DoArchive = *fc.Archive
	}
	if fc.ArchivePath != nil {
		cfg.ArchivePath = *fc.ArchivePath
	}
	if fc.SourceVersion != nil {
		cfg.SourceVersion = *fc.SourceVersion
	}
	if fc.Encoding != nil {
		cfg.Encoding = *fc.Encoding
	}
	if fc.Linesep != nil {
		cfg.Linesep = *fc.Linesep
	}
	if fc.Indentation != nil {
		cfg.Indentation = *fc.Indentation
	}
	if fc.PEP8 != nil {
		cfg.PEP8 = *fc.PEP8
	}
	return cfg, nil
}

// ApplyEnv layers environment overrides over cfg.
func ApplyEnv(cfg Config) Config {
	if v, ok := os.LookupEnv(EnvQuiet); ok {
		cfg.Quiet = ParseBool(v, cfg.Quiet)
	}
	if v, ok := os.LookupEnv(EnvConcurrency); ok {
		if n := cast.ToInt(v); n > 0 {
			cfg.Concurrency = n
		}
	}
	if v, ok := os.LookupEnv(EnvDoArchive); ok {
		cfg.DoArchive = ParseBool(v, cfg.DoArchive)
	}
	if v, ok := os.LookupEnv(EnvArchivePath); ok && v != "" {
		cfg.ArchivePath = v
	}
	if v, ok := os.LookupEnv(EnvSourceVersion); ok && v != "" {
		cfg.SourceVersion = v
	}
	if v, ok := os.LookupEnv(EnvEncoding); ok && v != "" {
		cfg.Encoding = v
	}
	if v, ok := os.LookupEnv(EnvLinesep); ok && v != "" {
		cfg.Linesep = v
	}
	if v, ok := os.LookupEnv(EnvIndent); ok && v != "" {
		cfg.Indentation = v
	}
	if v, ok := os.LookupEnv(EnvPEP8); ok {
		cfg.PEP8 = ParseBool(v, cfg.PEP8)
	}
	return cfg
}

// booleanStates follows the configparser convention for boolean values.
var booleanStates = map[string]bool{
	"1": true, "0": false,
	"yes": true, "no": false,
	"true": true, "false": false,
	"on": true, "off": false,
}

// ParseBool interprets a boolean environment value, falling back to def for
// anything unrecognized.
func ParseBool(value string, def bool) bool {
	if b, ok := booleanStates[strings.ToLower(strings.TrimSpace(value))]; ok {
		return b
	}
	return def
}

// NormalizeLinesep maps a user-facing line separator name (or the literal
// sequence) to the byte sequence used on write.
func NormalizeLinesep(s string) (string, error) {
	switch strings.ToUpper(s) {
	case "", "DETECT":
		return "", nil
	case "LF":
		return "\n", nil
	case "CRLF":
		return "\r\n", nil
	case "CR":
		return "\r", nil
	}
	switch s {
	case "\n", "\r\n", "\r":
		return s, nil
	}
	return "", fmt.Errorf("invalid line separator %q (want LF, CRLF or CR)", s)
}
