package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/remedyqa/remedy/pkg/types"
)

const (
	reportFile  = "report.json"
	summaryFile = "summary.md"
)

// WriteReport persists the suite outcome under the output directory: a
// machine-readable report.json and a human-readable summary.md. Both are
// overwritten on every suite run; the stats command reads the latest.
func (o *Orchestrator) WriteReport(suite *types.SuiteResult) error {
	if err := os.MkdirAll(o.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}

	data, err := json.MarshalIndent(suite, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	reportPath := filepath.Join(o.cfg.OutputDir, reportFile)
	if err := os.WriteFile(reportPath, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	summaryPath := filepath.Join(o.cfg.OutputDir, summaryFile)
	if err := os.WriteFile(summaryPath, []byte(RenderSummary(suite)), 0644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	o.log.Infof("report written to %s", reportPath)
	return nil
}

// LoadReport reads the latest suite report from the output directory.
func LoadReport(outputDir string) (*types.SuiteResult, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, reportFile))
	if err != nil {
		return nil, fmt.Errorf("no suite report in %s (run `remedy suite` first): %w", outputDir, err)
	}
	var suite types.SuiteResult
	if err := json.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &suite, nil
}

// RenderSummary formats a suite result as markdown. Also used verbatim by
// the stats command.
func RenderSummary(suite *types.SuiteResult) string {
	var b strings.Builder

	b.WriteString("# Test Suite Summary\n\n")
	fmt.Fprintf(&b, "- Started: %s\n", suite.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- Duration: %s\n", suite.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "- Tests: %d (passed %d, healed %d, failed %d)\n",
		suite.TotalTests, suite.PassedTests, suite.HealedTests, suite.FailedTests)
	fmt.Fprintf(&b, "- Success rate: %.1f%%\n", suite.SuccessRate())
	if suite.TotalCost.TotalTokens > 0 {
		fmt.Fprintf(&b, "- Healing cost: %d tokens (~$%.4f)\n",
			suite.TotalCost.TotalTokens, suite.TotalCost.USD)
	}

	b.WriteString("\n| Test | Status | Attempts | Healing |\n")
	b.WriteString("|------|--------|----------|---------|\n")
	for _, r := range suite.Results {
		fmt.Fprintf(&b, "| %s | %s | %d | %s |\n",
			r.TestName, r.Status, r.Attempts, healingCell(r))
	}

	return b.String()
}

func healingCell(r *types.TestResult) string {
	if r.HealingResult == nil {
		return "—"
	}
	return fmt.Sprintf("%d action(s), %d applied, confidence %.2f",
		len(r.HealingResult.Actions), r.HealingResult.AppliedCount(), r.HealingResult.Confidence)
}
