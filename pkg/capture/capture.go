// Package capture assembles structured failure records. Capture is strictly
// best-effort: the screenshot and the context snapshot are taken
// independently, and either may be missing from the resulting record
// without masking the original failure.
package capture

import (
	"context"

	"github.com/remedyqa/remedy/pkg/driver"
	"github.com/remedyqa/remedy/pkg/logging"
	"github.com/remedyqa/remedy/pkg/types"
)

// Capturer enriches failure records with screenshots and page context
// observed from the session the driver holds open after a failed attempt.
type Capturer struct {
	driver driver.Driver
	log    *logging.Logger
}

// NewCapturer creates a capturer backed by the given driver.
func NewCapturer(d driver.Driver) *Capturer {
	log, err := logging.NewLogger("capture")
	if err != nil {
		log.Warnf("capture logger fell back to stderr: %v", err)
	}
	return &Capturer{driver: d, log: log}
}

// Capture returns a copy of base enriched with whatever the driver can
// still observe. It never returns an error and never panics past its
// caller; a totally unobservable session yields the base record unchanged.
func (c *Capturer) Capture(ctx context.Context, base *types.TestFailure) *types.TestFailure {
	enriched := *base

	screenshot, err := c.driver.CaptureScreenshot(ctx)
	if err != nil {
		c.log.Warnf("screenshot capture failed for %s: %v", base.TestName, err)
	} else {
		enriched.Screenshot = screenshot
	}

	testCtx, err := c.driver.TestContext(ctx)
	if err != nil {
		c.log.Warnf("context capture failed for %s: %v", base.TestName, err)
	} else {
		enriched.Context = testCtx
	}

	return &enriched
}
