package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remedyqa/remedy/pkg/types"
)

func writeSuiteTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"login.test.yaml":          "name: login\nurl: https://example.com\nsteps:\n  - click: \"#go\"\n",
		"flows/checkout.test.yaml": brokenScript,
		"flows/search.test.yaml":   "name: search\nurl: https://example.com\nsteps:\n  - click: \"#go\"\n",
		"flows/helpers.yaml":       "not a test\n",
		"README.md":                "docs\n",
		"flows/nested/a.test.yaml": "name: a\nurl: https://example.com\nsteps:\n  - click: \"#go\"\n",
	}
	for rel, content := range files {
		writeTreeFile(t, root, rel, content)
	}
	return root
}

func writeTreeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDiscoverMatchesPatternAtAllDepths(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputDir = ".remedy"
	root := writeSuiteTree(t)
	writeTreeFile(t, root, ".remedy/stale.test.yaml", "inside the output dir, skipped\n")
	o := newTestOrchestrator(cfg, &contentDriver{}, &fixedOracle{})

	paths, err := o.Discover(root)
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		rel, _ := filepath.Rel(root, p)
		names = append(names, filepath.ToSlash(rel))
	}
	assert.Equal(t, []string{
		"flows/checkout.test.yaml",
		"flows/nested/a.test.yaml",
		"flows/search.test.yaml",
		"login.test.yaml",
	}, names)
}

func TestDiscoverRejectsBadPattern(t *testing.T) {
	cfg := testConfig(t)
	cfg.TestPattern = "[unterminated"
	o := newTestOrchestrator(cfg, &contentDriver{}, &fixedOracle{})

	_, err := o.Discover(t.TempDir())

	var cerr *types.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "test_pattern", cerr.Field)
}

func TestRunSuiteAggregatesAndWritesReport(t *testing.T) {
	cfg := testConfig(t)
	cfg.HealingEnabled = false
	root := writeSuiteTree(t)

	// Only the checkout flow contains the broken marker, so 3 of 4 pass.
	d := &contentDriver{brokenMarker: "#buy-now"}
	o := newTestOrchestrator(cfg, d, &fixedOracle{confidence: 0.9})

	suite, err := o.RunSuite(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 4, suite.TotalTests)
	assert.Equal(t, 3, suite.PassedTests)
	assert.Equal(t, 1, suite.FailedTests)
	assert.InDelta(t, 75.0, suite.SuccessRate(), 1e-9)
	assert.False(t, suite.AllSucceeded())

	loaded, err := LoadReport(cfg.OutputDir)
	require.NoError(t, err)
	assert.Equal(t, suite.TotalTests, loaded.TotalTests)
	assert.Len(t, loaded.Results, 4)

	summary, err := os.ReadFile(filepath.Join(cfg.OutputDir, "summary.md"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "Success rate: 75.0%")
	assert.Contains(t, string(summary), "| checkout flow | failed | 1 |")
}

func TestRunSuiteNoMatchesIsAnError(t *testing.T) {
	cfg := testConfig(t)
	o := newTestOrchestrator(cfg, &contentDriver{}, &fixedOracle{})

	_, err := o.RunSuite(context.Background(), t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tests matching")
}

func TestLoadReportMissing(t *testing.T) {
	_, err := LoadReport(t.TempDir())
	require.Error(t, err)
}
