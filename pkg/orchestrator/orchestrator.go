// Package orchestrator owns the per-test healing state machine and the
// suite runner. It is the only layer that retries tests: a failed attempt
// is captured, sent to the oracle, optionally healed on disk, and re-run
// until it passes or the attempt budget runs out.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/remedyqa/remedy/pkg/capture"
	"github.com/remedyqa/remedy/pkg/config"
	"github.com/remedyqa/remedy/pkg/driver"
	"github.com/remedyqa/remedy/pkg/logging"
	"github.com/remedyqa/remedy/pkg/types"
)

// healingOracle proposes validated fixes for a captured failure. Satisfied
// by *oracle.Oracle.
type healingOracle interface {
	ProposeHealing(ctx context.Context, failure *types.TestFailure, artifact string, prior []*types.HealingAction) *types.HealingResult
}

// healingApplier rewrites test artifacts. Satisfied by *healer.Applier.
type healingApplier interface {
	ApplyHealing(testPath string, actions []*types.HealingAction) (string, error)
}

// Orchestrator runs tests with self-healing retries.
type Orchestrator struct {
	cfg      *config.Config
	driver   driver.Driver
	capturer *capture.Capturer
	oracle   healingOracle
	applier  healingApplier
	log      *logging.Logger
}

// New wires an orchestrator from its collaborators.
func New(cfg *config.Config, d driver.Driver, o healingOracle, a healingApplier) *Orchestrator {
	log, err := logging.NewLogger("orchestrator")
	if err != nil {
		log.Warnf("orchestrator logger fell back to stderr: %v", err)
	}
	return &Orchestrator{
		cfg:      cfg,
		driver:   d,
		capturer: capture.NewCapturer(d),
		oracle:   o,
		applier:  a,
		log:      log,
	}
}

// RunTest runs one test to a terminal status.
//
// Attempt budget: MaxHealingAttempts counts runs, first attempt included.
// After every failed run short of the budget the oracle is consulted;
// proposed actions are applied only when auto-apply is on, the proposal is
// not flagged for review, and the action clears the confidence threshold.
// The loop re-runs the test after each consultation whether or not a
// mutation happened, so a below-threshold proposal still exhausts the
// budget rather than aborting early.
//
// Terminal status: passed (clean first pass), healed (pass after at least
// one applied action), healing_failed (applied actions but still failing),
// failed (failing with nothing ever applied).
func (o *Orchestrator) RunTest(ctx context.Context, path string) *types.TestResult {
	start := time.Now()
	result := &types.TestResult{
		TestName: testNameFromPath(path),
		TestPath: path,
	}

	anyApplied := false
	var prior []*types.HealingAction
	var costSoFar types.Cost

	for attempt := 1; ; attempt++ {
		o.log.Infof("running %s (attempt %d/%d)", path, attempt, o.cfg.MaxHealingAttempts)

		attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeouts.Attempt.Std())
		run := o.driver.RunTest(attemptCtx, path)
		cancel()

		result.Attempts = attempt
		result.Duration = time.Since(start)
		if run.TestName != "" {
			result.TestName = run.TestName
		}

		if run.Status == types.StatusPassed {
			if anyApplied {
				result.Status = types.StatusHealed
			} else {
				result.Status = types.StatusPassed
			}
			result.Failure = nil
			o.log.Infof("%s %s after %d attempt(s)", path, result.Status, attempt)
			return result
		}

		result.Failure = run.Failure

		if !o.cfg.HealingEnabled || attempt >= o.cfg.MaxHealingAttempts || ctx.Err() != nil {
			if anyApplied {
				result.Status = types.StatusHealingFailed
			} else {
				result.Status = types.StatusFailed
			}
			result.Duration = time.Since(start)
			o.log.Warnf("%s %s after %d attempt(s)", path, result.Status, attempt)
			return result
		}

		failure := o.capturer.Capture(ctx, run.Failure)
		result.Failure = failure
		o.saveScreenshot(failure, attempt)

		artifact, err := os.ReadFile(path)
		if err != nil {
			o.log.Warnf("could not read artifact for oracle prompt: %v", err)
		}

		healing := o.oracle.ProposeHealing(ctx, failure, string(artifact), prior)
		healing.Cost.Add(costSoFar)
		costSoFar = healing.Cost
		result.HealingResult = healing
		prior = append(prior, healing.Actions...)

		if healing.Empty() {
			o.log.Warnf("oracle proposed nothing for %s", path)
			continue
		}

		eligible := o.eligibleActions(healing)
		if len(eligible) == 0 {
			o.log.Infof("no action cleared the gate for %s (auto_apply=%v, review=%v, threshold=%.2f)",
				path, o.cfg.AutoApply, healing.RequiresReview, o.cfg.ConfidenceThreshold)
			continue
		}

		if _, err := o.applier.ApplyHealing(path, eligible); err != nil {
			// Aborts only this healing attempt; anything already applied
			// stays applied and the re-run proceeds.
			o.log.Errorf("healing application on %s: %v", path, err)
		}
		if healing.AppliedCount() > 0 {
			anyApplied = true
		}
	}
}

// eligibleActions filters a proposal down to what may touch disk: auto-apply
// on, proposal not flagged for review, and per-action confidence at or above
// the threshold.
func (o *Orchestrator) eligibleActions(healing *types.HealingResult) []*types.HealingAction {
	if !o.cfg.AutoApply || healing.RequiresReview {
		return nil
	}
	var eligible []*types.HealingAction
	for _, action := range healing.Actions {
		if action.Confidence >= o.cfg.ConfidenceThreshold {
			eligible = append(eligible, action)
		}
	}
	return eligible
}

// saveScreenshot writes the failure screenshot under the output directory.
// Best effort; reporting never blocks the healing loop.
func (o *Orchestrator) saveScreenshot(failure *types.TestFailure, attempt int) {
	if len(failure.Screenshot) == 0 {
		return
	}
	dir := filepath.Join(o.cfg.OutputDir, "screenshots")
	if err := os.MkdirAll(dir, 0755); err != nil {
		o.log.Warnf("screenshot dir: %v", err)
		return
	}
	name := fmt.Sprintf("%s-attempt-%d.png", sanitizeName(failure.TestName), attempt)
	if err := os.WriteFile(filepath.Join(dir, name), failure.Screenshot, 0644); err != nil {
		o.log.Warnf("screenshot write: %v", err)
	}
}

func testNameFromPath(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func sanitizeName(name string) string {
	out := []rune(name)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
