package orchestrator

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/remedyqa/remedy/pkg/types"
)

// RunSuite discovers tests under root matching the configured pattern and
// runs each to a terminal status. Tests run sequentially so a healed
// artifact never races its own re-run. The suite report is written to the
// output directory before returning.
func (o *Orchestrator) RunSuite(ctx context.Context, root string) (*types.SuiteResult, error) {
	paths, err := o.Discover(root)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no tests matching %q under %s", o.cfg.TestPattern, root)
	}

	o.log.Infof("suite: %d test(s) under %s", len(paths), root)

	suite := &types.SuiteResult{StartedAt: time.Now()}
	for _, path := range paths {
		if ctx.Err() != nil {
			o.log.Warnf("suite interrupted: %v", ctx.Err())
			break
		}
		suite.Record(o.RunTest(ctx, path))
	}
	suite.Duration = time.Since(suite.StartedAt)

	if err := o.WriteReport(suite); err != nil {
		o.log.Errorf("report: %v", err)
	}

	return suite, nil
}

// Discover returns the test artifacts under root whose root-relative path
// matches the configured glob, sorted for a stable run order.
func (o *Orchestrator) Discover(root string) ([]string, error) {
	matchers, err := compilePattern(o.cfg.TestPattern)
	if err != nil {
		return nil, &types.ConfigError{
			Field:   "test_pattern",
			Message: fmt.Sprintf("invalid glob %q: %v", o.cfg.TestPattern, err),
		}
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Never descend into our own output.
			if path != root && filepath.Base(path) == filepath.Base(o.cfg.OutputDir) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		slashed := filepath.ToSlash(rel)
		for _, m := range matchers {
			if m.Match(slashed) {
				paths = append(paths, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

// compilePattern compiles the discovery glob. A leading "**/" also matches
// files at the root itself, the way gitignore-style globs behave.
func compilePattern(pattern string) ([]glob.Glob, error) {
	m, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, err
	}
	matchers := []glob.Glob{m}

	if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
		top, err := glob.Compile(rest, '/')
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, top)
	}
	return matchers, nil
}
