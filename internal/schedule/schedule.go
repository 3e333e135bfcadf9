// Package schedule fans per-file work across a bounded worker pool. Tasks
// are independent: a failure (or panic) in one file is captured at the task
// boundary and never cancels its siblings.
package schedule

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome for a single path.
type Result struct {
	Path string
	Err  error
}

// Failed counts results with a non-nil error.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Run dispatches fn over paths with at most workers running at once
// (default: available parallelism). The logger serializes progress output;
// per-file errors are logged with the file identity and collected in the
// returned results, in input order.
func Run(paths []string, workers int, logger *zap.Logger, fn func(string) error) []Result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]Result, len(paths))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			logger.Info("converting", zap.String("file", path))
			err := runOne(path, fn)
			results[i] = Result{Path: path, Err: err}
			if err != nil {
				logger.Error("conversion failed", zap.String("file", path), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// runOne isolates panics so a programming error in one task reports like any
// other per-file failure.
func runOne(path string, fn func(string) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic for %s: %v", path, r)
		}
	}()
	return fn(path)
}
