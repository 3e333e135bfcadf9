// Package f2format converts Python formatted string literals (f-strings)
// into equivalent str.format calls, so converted sources run on interpreters
// that predate the literal syntax. The conversion is byte-exact outside the
// rewritten spans.
package f2format

import (
	"os"

	"github.com/agentic-research/f2format/internal/config"
	"github.com/agentic-research/f2format/internal/convert"
	"github.com/agentic-research/f2format/internal/driver"
	"github.com/agentic-research/f2format/internal/pyparse"
)

// Convert is the pure string-level API: it rewrites every f-string in code
// and returns the converted source. filename is used in error messages only;
// an empty sourceVersion falls back to the F2FORMAT_SOURCE_VERSION
// environment variable, then to the newest supported grammar.
func Convert(code []byte, filename, sourceVersion string) (string, error) {
	version, err := pyparse.Resolve(sourceVersion, os.Getenv(pyparse.EnvSourceVersion))
	if err != nil {
		return "", err
	}
	opts := convert.DefaultOptions()
	opts.Filename = filename
	opts.SourceVersion = version
	return convert.Convert(code, opts)
}

// F2Format converts one file in place under cfg, preserving its encoding,
// line endings, and indentation. Callers wanting recoverability archive
// first; the write itself is atomic.
func F2Format(filename string, cfg config.Config) error {
	version, err := pyparse.Resolve(cfg.SourceVersion, os.Getenv(pyparse.EnvSourceVersion))
	if err != nil {
		return err
	}
	d := &driver.Driver{Config: cfg, Version: version}
	return d.ConvertFile(filename)
}
