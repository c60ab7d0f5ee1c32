package types

import "time"

// TestStatus is the terminal status of one test.
type TestStatus string

const (
	// StatusPassed means the test passed on its first attempt with no
	// healing involved.
	StatusPassed TestStatus = "passed"

	// StatusFailed means the test failed and no healing action was ever
	// applied to the artifact (healing disabled, nothing proposed, or
	// every proposal held back by the confidence gate).
	StatusFailed TestStatus = "failed"

	// StatusHealed means the test passed after at least one healing
	// action was applied. Callers can always tell a healed pass from a
	// clean pass.
	StatusHealed TestStatus = "healed"

	// StatusHealingFailed means at least one healing action was applied
	// but the test still failed when attempts ran out.
	StatusHealingFailed TestStatus = "healing_failed"
)

// Succeeded reports whether the status counts toward the suite success rate.
func (s TestStatus) Succeeded() bool {
	return s == StatusPassed || s == StatusHealed
}

// TestResult is the terminal record for one test. Attempts increments
// monotonically; Status is assigned exactly once at loop exit.
type TestResult struct {
	TestName      string         `json:"test_name"`
	TestPath      string         `json:"test_path"`
	Status        TestStatus     `json:"status"`
	Duration      time.Duration  `json:"duration"`
	Attempts      int            `json:"attempts"`
	Failure       *TestFailure   `json:"failure,omitempty"`
	HealingResult *HealingResult `json:"healing_result,omitempty"`
}

// SuiteResult aggregates test results over a directory. Built incrementally
// as each test concludes.
type SuiteResult struct {
	TotalTests  int           `json:"total_tests"`
	PassedTests int           `json:"passed_tests"`
	HealedTests int           `json:"healed_tests"`
	FailedTests int           `json:"failed_tests"`
	Duration    time.Duration `json:"duration"`
	TotalCost   Cost          `json:"total_cost"`
	Results     []*TestResult `json:"results"`
	StartedAt   time.Time     `json:"started_at"`
}

// Record folds one concluded test into the aggregate.
func (s *SuiteResult) Record(r *TestResult) {
	s.TotalTests++
	switch r.Status {
	case StatusPassed:
		s.PassedTests++
	case StatusHealed:
		s.HealedTests++
	default:
		s.FailedTests++
	}
	if r.HealingResult != nil {
		s.TotalCost.Add(r.HealingResult.Cost)
	}
	s.Results = append(s.Results, r)
}

// SuccessRate returns (passed + healed) / total as a percentage.
// Returns 0 for an empty suite.
func (s *SuiteResult) SuccessRate() float64 {
	if s.TotalTests == 0 {
		return 0
	}
	return float64(s.PassedTests+s.HealedTests) / float64(s.TotalTests) * 100.0
}

// AllSucceeded reports whether every test ended passed or healed. The CLI
// exit code is 0 iff this holds.
func (s *SuiteResult) AllSucceeded() bool {
	return s.FailedTests == 0
}
