// Package driver contains the browser automation driver: it executes test
// scripts against an isolated browser session, captures screenshots and page
// context for the failure capturer, and dispatches the agentic loop's
// primitive actions.
package driver

import (
	"context"

	"github.com/remedyqa/remedy/pkg/types"
)

// Driver is the behavioral contract any automation backend must satisfy.
// One driver owns at most one browser session at a time; RunTest opens a
// fresh session per attempt and tears it down on success or holds it open
// after a failure so the capturer can observe the failed state. Close is
// unconditional cleanup and must be safe on every exit path.
type Driver interface {
	// RunTest executes a single attempt of the test at path. No retry
	// logic lives here; the orchestrator owns retries. The returned
	// result has Attempts == 1 and Status passed or failed.
	RunTest(ctx context.Context, path string) *types.TestResult

	// StartSession opens a session at url without running a test. Used
	// by the agentic action loop.
	StartSession(ctx context.Context, url string) error

	// CaptureScreenshot returns a PNG of the current page.
	CaptureScreenshot(ctx context.Context) ([]byte, error)

	// TestContext snapshots the current page state.
	TestContext(ctx context.Context) (*types.TestContext, error)

	// ExecuteFunctionCall validates and dispatches one primitive action.
	// Calls missing required arguments fail with a structured error in
	// the result, never a panic or a session teardown.
	ExecuteFunctionCall(ctx context.Context, call *types.FunctionCall) *types.FunctionCallResult

	// Close tears down the session and the automation backend.
	Close() error
}

// MapCoordinate maps a normalized coordinate in [0,1000]² linearly onto
// viewport pixels. Coordinate (500,500) on an 800×600 viewport lands at
// (400,300).
func MapCoordinate(c types.Coordinate, vp types.Viewport) (float64, float64) {
	x := float64(c.X) * float64(vp.Width) / float64(types.NormalizedRange)
	y := float64(c.Y) * float64(vp.Height) / float64(types.NormalizedRange)
	return x, y
}
