// Package cmd implements the f2format command line interface.
package cmd

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/agentic-research/f2format/internal/archive"
	"github.com/agentic-research/f2format/internal/config"
	"github.com/agentic-research/f2format/internal/convert"
	"github.com/agentic-research/f2format/internal/driver"
	"github.com/agentic-research/f2format/internal/pydetect"
	"github.com/agentic-research/f2format/internal/pyparse"
	"github.com/agentic-research/f2format/internal/schedule"
)

var (
	flagQuiet         bool
	flagConcurrency   int
	flagDryRun        bool
	flagJSON          bool
	flagNoArchive     bool
	flagArchivePath   string
	flagRecover       string
	flagRemoveArchive bool
	flagSourceVersion string
	flagEncoding      string
	flagLinesep       string
	flagIndentation   string
	flagNoPEP8        bool
	flagSimple        bool
)

func init() {
	f := rootCmd.Flags()
	f.BoolVarP(&flagQuiet, "quiet", "q", false, "run in quiet mode")
	f.IntVarP(&flagConcurrency, "concurrency", "C", 0, "worker count for batch conversion (default: available parallelism)")
	f.BoolVarP(&flagDryRun, "dry-run", "n", false, "list the files that would change without mutating anything")
	f.BoolVar(&flagJSON, "json", false, "emit the dry-run report as JSON")
	f.BoolVar(&flagNoArchive, "no-archive", false, "do not archive original files before conversion")
	f.StringVarP(&flagArchivePath, "archive-path", "k", "", "path to archive original files (default \"archive\")")
	f.StringVarP(&flagRecover, "recover", "r", "", "recover files from a previous archive location")
	f.BoolVar(&flagRemoveArchive, "remove-archive", false, "remove the archive after recovery")
	f.StringVarP(&flagSourceVersion, "source-version", "V", "", "parse against this Python version (default: newest supported)")
	f.StringVarP(&flagEncoding, "encoding", "c", "", "encoding to open source files (default: detected)")
	f.StringVarP(&flagLinesep, "linesep", "l", "", "line separator LF, CRLF or CR (default: detected)")
	f.StringVarP(&flagIndentation, "indentation", "t", "", "indentation unit (default: detected)")
	f.BoolVar(&flagNoPEP8, "no-pep8", false, "do not make the inserted calls PEP 8 compliant")
	f.BoolVarP(&flagSimple, "simple", "s", false, "read from a file or stdin, write converted code to stdout")
}

var rootCmd = &cobra.Command{
	Use:           "f2format [flags] <python source files and directories...>",
	Short:         "Convert f-string literals to str.format calls for Python 3 compatibility",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}

		if flagRecover != "" {
			root, err := filepath.Abs(flagRecover)
			if err != nil {
				return err
			}
			return archive.Recover(osfs.New("/"), root, flagRemoveArchive)
		}

		version, err := pyparse.Resolve(cfg.SourceVersion, "")
		if err != nil {
			return err
		}

		if flagSimple {
			return runSimple(cmd, args, cfg, version)
		}

		files, err := collectFiles(args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no valid Python source files found")
		}

		d := &driver.Driver{Config: cfg, Version: version}

		if flagDryRun {
			return runDryRun(cmd, d, files)
		}

		if cfg.DoArchive {
			root, err := filepath.Abs(cfg.ArchivePath)
			if err != nil {
				return err
			}
			if err := archive.Archive(osfs.New("/"), files, root); err != nil {
				return err
			}
		}

		logger := newLogger(cfg.Quiet)
		defer func() { _ = logger.Sync() }()

		results := schedule.Run(files, cfg.Concurrency, logger, d.ConvertFile)
		failed := schedule.Failed(results)
		logger.Info("batch complete",
			zap.Int("converted", len(results)-failed),
			zap.Int("failed", failed))

		// Per-file failures are logged, not fatal: the batch still exits 0.
		return nil
	},
}

// resolveConfig layers defaults, the optional HCL file, environment
// variables, and finally explicit flags.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	cfg, err := config.ApplyFile(cfg, config.DefaultsFile)
	if err != nil {
		return cfg, err
	}
	cfg = config.ApplyEnv(cfg)

	flags := cmd.Flags()
	if flags.Changed("quiet") {
		cfg.Quiet = flagQuiet
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = flagConcurrency
	}
	if flags.Changed("no-archive") {
		cfg.DoArchive = !flagNoArchive
	}
	if flags.Changed("archive-path") {
		cfg.ArchivePath = flagArchivePath
	}
	if flags.Changed("source-version") {
		cfg.SourceVersion = flagSourceVersion
	}
	if flags.Changed("encoding") {
		cfg.Encoding = flagEncoding
	}
	if flags.Changed("linesep") {
		cfg.Linesep = flagLinesep
	}
	if flags.Changed("indentation") {
		cfg.Indentation = flagIndentation
	}
	if flags.Changed("no-pep8") {
		cfg.PEP8 = !flagNoPEP8
	}

	sep, err := config.NormalizeLinesep(cfg.Linesep)
	if err != nil {
		return cfg, err
	}
	cfg.Linesep = sep
	return cfg, nil
}

// runSimple converts a single stream: a named file, or stdin when no
// argument is given. The result goes to stdout; nothing is mutated.
func runSimple(cmd *cobra.Command, args []string, cfg config.Config, version pyparse.Version) error {
	var (
		code []byte
		name string
		err  error
	)
	if len(args) > 0 {
		name = args[0]
		code, err = os.ReadFile(name)
	} else {
		name = "<stdin>"
		code, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	encName, enc := pydetect.DetectEncoding(code)
	if cfg.Encoding != "" {
		encName = cfg.Encoding
		enc = pydetect.Lookup(encName)
	}
	if enc == nil {
		return fmt.Errorf("%s: unknown encoding %q", name, encName)
	}
	decoded, err := enc.NewDecoder().Bytes(code)
	if err != nil {
		return fmt.Errorf("decode %s as %s: %w", name, encName, err)
	}

	out, err := convert.Convert(decoded, convert.Options{
		Filename:      name,
		SourceVersion: version,
		PEP8:          cfg.PEP8,
	})
	if err != nil {
		return err
	}
	encoded, err := enc.NewEncoder().Bytes([]byte(out))
	if err != nil {
		return fmt.Errorf("encode %s as %s: %w", name, encName, err)
	}
	_, err = cmd.OutOrStdout().Write(encoded)
	return err
}

func runDryRun(cmd *cobra.Command, d *driver.Driver, files []string) error {
	reports := make([]driver.Report, 0, len(files))
	for _, path := range files {
		report, err := d.Preview(path)
		if err != nil {
			report.Path = path
			fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s: %v\n", path, err)
		}
		reports = append(reports, report)
	}

	if flagJSON {
		fmt.Fprintln(cmd.OutOrStdout(), oj.JSON(reports, 2))
		return nil
	}
	for _, r := range reports {
		if r.Changed {
			fmt.Fprintf(cmd.OutOrStdout(), "would convert %s (%s, %s)\n", r.Path, r.Encoding, r.Linesep)
		}
	}
	return nil
}

// collectFiles expands the argument list into absolute paths of Python
// sources, walking directories recursively and skipping symlinks.
func collectFiles(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(path string) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if !seen[abs] {
			seen[abs] = true
			files = append(files, abs)
		}
		return nil
	}

	for _, arg := range args {
		info, err := os.Lstat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			continue
		case info.IsDir():
			err := filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.Type()&fs.ModeSymlink != 0 || d.IsDir() || !isPython(path) {
					return nil
				}
				return add(path)
			})
			if err != nil {
				return nil, err
			}
		case isPython(arg):
			if err := add(arg); err != nil {
				return nil, err
			}
		}
	}
	return files, nil
}

func isPython(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py", ".pyw":
		return true
	}
	return false
}

func newLogger(quiet bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	if quiet {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
