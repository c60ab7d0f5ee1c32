package types

import (
	"math"
	"testing"
)

func TestSuiteResultAggregation(t *testing.T) {
	suite := &SuiteResult{}
	suite.Record(&TestResult{TestName: "login", Status: StatusPassed, Attempts: 1})
	suite.Record(&TestResult{
		TestName: "checkout",
		Status:   StatusHealed,
		Attempts: 2,
		HealingResult: &HealingResult{
			Actions: []*HealingAction{{Type: ActionSelectorFix, Applied: true}},
			Cost:    Cost{TotalTokens: 1200, USD: 0.004},
		},
	})
	suite.Record(&TestResult{TestName: "search", Status: StatusFailed, Attempts: 3})

	if suite.TotalTests != 3 {
		t.Errorf("TotalTests = %d, want 3", suite.TotalTests)
	}
	if suite.PassedTests != 1 || suite.HealedTests != 1 || suite.FailedTests != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1",
			suite.PassedTests, suite.HealedTests, suite.FailedTests)
	}
	if got := suite.SuccessRate(); math.Abs(got-66.666) > 0.1 {
		t.Errorf("SuccessRate() = %.1f, want 66.7", got)
	}
	if suite.AllSucceeded() {
		t.Error("AllSucceeded() should be false with one failed test")
	}
	if suite.TotalCost.TotalTokens != 1200 {
		t.Errorf("TotalCost.TotalTokens = %d, want 1200", suite.TotalCost.TotalTokens)
	}
}

func TestSuiteResultHealingFailedCountsAsFailed(t *testing.T) {
	suite := &SuiteResult{}
	suite.Record(&TestResult{TestName: "flaky", Status: StatusHealingFailed, Attempts: 3})

	if suite.FailedTests != 1 {
		t.Errorf("FailedTests = %d, want 1", suite.FailedTests)
	}
	if suite.SuccessRate() != 0 {
		t.Errorf("SuccessRate() = %v, want 0", suite.SuccessRate())
	}
}

func TestStatusSucceeded(t *testing.T) {
	tests := []struct {
		status TestStatus
		want   bool
	}{
		{StatusPassed, true},
		{StatusHealed, true},
		{StatusFailed, false},
		{StatusHealingFailed, false},
	}

	for _, tt := range tests {
		if got := tt.status.Succeeded(); got != tt.want {
			t.Errorf("%s.Succeeded() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestEmptySuiteSuccessRate(t *testing.T) {
	suite := &SuiteResult{}
	if got := suite.SuccessRate(); got != 0 {
		t.Errorf("SuccessRate() on empty suite = %v, want 0", got)
	}
}
