package driver

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/remedyqa/remedy/pkg/logging"
	"github.com/remedyqa/remedy/pkg/types"
)

const (
	// htmlExcerptLimit bounds the DOM excerpt carried in a TestContext.
	htmlExcerptLimit = 8192

	// maxConsoleMessages bounds the console log captured per attempt.
	maxConsoleMessages = 100

	// scrollStep is the wheel delta for one scroll action, in pixels.
	scrollStep = 500.0
)

// Options configures a PlaywrightDriver.
type Options struct {
	Headless      bool
	Viewport      types.Viewport
	ActionTimeout time.Duration
}

// PlaywrightDriver drives a Chromium browser through Playwright. It owns at
// most one session; each RunTest replaces it.
type PlaywrightDriver struct {
	mu          sync.Mutex
	pw          *playwright.Playwright
	opts        Options
	log         *logging.Logger
	session     *session
	initialized bool
}

// session bundles the per-attempt browser resources.
type session struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	consoleMu sync.Mutex
	console   []types.ConsoleMessage
}

// NewPlaywrightDriver creates a driver. Initialize must be called before use.
func NewPlaywrightDriver(opts Options) *PlaywrightDriver {
	if opts.Viewport.Width == 0 || opts.Viewport.Height == 0 {
		opts.Viewport = types.Viewport{Width: 1280, Height: 720}
	}
	if opts.ActionTimeout == 0 {
		opts.ActionTimeout = 30 * time.Second
	}

	log, err := logging.NewLogger("driver")
	if err != nil {
		log.Warnf("driver logger fell back to stderr: %v", err)
	}

	return &PlaywrightDriver{opts: opts, log: log}
}

// Initialize installs and starts Playwright. Output is discarded so the
// installer cannot pollute CLI output.
func (d *PlaywrightDriver) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil
	}

	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(runOpts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	d.pw = pw
	d.initialized = true
	return nil
}

// openSession launches a fresh browser, context, and page, replacing any
// session left open by a previous failed attempt.
func (d *PlaywrightDriver) openSession() (*session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return nil, types.NewDriverError(types.DriverErrSession, "driver not initialized", nil)
	}

	d.closeSessionLocked()

	browser, err := d.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(d.opts.Headless),
	})
	if err != nil {
		return nil, types.NewDriverError(types.DriverErrSession, "failed to launch browser", err)
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  d.opts.Viewport.Width,
			Height: d.opts.Viewport.Height,
		},
	})
	if err != nil {
		browser.Close()
		return nil, types.NewDriverError(types.DriverErrSession, "failed to create context", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		return nil, types.NewDriverError(types.DriverErrSession, "failed to create page", err)
	}

	page.SetDefaultTimeout(float64(d.opts.ActionTimeout.Milliseconds()))

	s := &session{browser: browser, context: browserCtx, page: page}
	page.On("console", func(msg playwright.ConsoleMessage) {
		s.consoleMu.Lock()
		defer s.consoleMu.Unlock()
		if len(s.console) < maxConsoleMessages {
			s.console = append(s.console, types.ConsoleMessage{
				Level: msg.Type(),
				Text:  msg.Text(),
			})
		}
	})

	d.session = s
	return s, nil
}

func (d *PlaywrightDriver) closeSessionLocked() {
	if d.session == nil {
		return
	}
	// Ignore close errors, continue cleanup
	_ = d.session.page.Close()
	_ = d.session.context.Close()
	_ = d.session.browser.Close()
	d.session = nil
}

// ReleaseSession closes the session held open after a failed attempt, once
// the capturer is done observing it.
func (d *PlaywrightDriver) ReleaseSession() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeSessionLocked()
}

func (d *PlaywrightDriver) currentSession() (*session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil, types.NewDriverError(types.DriverErrSession, "no active session", nil)
	}
	return d.session, nil
}

// RunTest executes a single attempt of the test script at path. On success
// the session is torn down before returning; on failure it is held open so
// the capturer can take a screenshot and a context snapshot of the failed
// state, and is torn down by the next attempt or by Close.
func (d *PlaywrightDriver) RunTest(ctx context.Context, path string) *types.TestResult {
	start := time.Now()

	script, err := LoadScript(path)
	if err != nil {
		return d.failedResult(path, path, start, asDriverError(err))
	}

	result := &types.TestResult{
		TestName: script.Name,
		TestPath: path,
		Attempts: 1,
	}

	s, err := d.openSession()
	if err != nil {
		result.Status = types.StatusFailed
		result.Duration = time.Since(start)
		result.Failure = d.newFailure(script.Name, path, asDriverError(err))
		return result
	}

	d.log.Infof("running %s (%d steps)", script.Name, len(script.Steps))

	if runErr := d.runScript(ctx, s, script); runErr != nil {
		d.log.Warnf("test %s failed: %v", script.Name, runErr)
		result.Status = types.StatusFailed
		result.Duration = time.Since(start)
		result.Failure = d.newFailure(script.Name, path, runErr)
		return result
	}

	d.mu.Lock()
	d.closeSessionLocked()
	d.mu.Unlock()

	result.Status = types.StatusPassed
	result.Duration = time.Since(start)
	d.log.Infof("test %s passed in %s", script.Name, result.Duration)
	return result
}

func (d *PlaywrightDriver) newFailure(name, path string, derr *types.DriverError) *types.TestFailure {
	return &types.TestFailure{
		TestName:  name,
		TestPath:  path,
		Error:     derr,
		Timestamp: time.Now(),
	}
}

func (d *PlaywrightDriver) failedResult(name, path string, start time.Time, derr *types.DriverError) *types.TestResult {
	return &types.TestResult{
		TestName: name,
		TestPath: path,
		Status:   types.StatusFailed,
		Attempts: 1,
		Duration: time.Since(start),
		Failure:  d.newFailure(name, path, derr),
	}
}

func (d *PlaywrightDriver) runScript(ctx context.Context, s *session, script *Script) *types.DriverError {
	if _, err := s.page.Goto(script.URL, playwright.PageGotoOptions{}); err != nil {
		return classifyError(types.DriverErrNavigation,
			fmt.Sprintf("navigation to %s failed", script.URL), err)
	}

	for i := range script.Steps {
		if ctx.Err() != nil {
			return types.NewDriverError(types.DriverErrTimeout, "test attempt canceled", ctx.Err())
		}
		step := &script.Steps[i]
		if err := d.runStep(s, step); err != nil {
			err.Message = fmt.Sprintf("step %d (%s): %s", i, step.Kind(), err.Message)
			return err
		}
	}
	return nil
}

func (d *PlaywrightDriver) runStep(s *session, step *Step) *types.DriverError {
	page := s.page

	switch {
	case step.Navigate != "":
		if _, err := page.Goto(step.Navigate, playwright.PageGotoOptions{}); err != nil {
			return classifyError(types.DriverErrNavigation, fmt.Sprintf("navigation to %s failed", step.Navigate), err)
		}

	case step.Click != "":
		if err := page.Click(step.Click, playwright.PageClickOptions{}); err != nil {
			return classifyError(types.DriverErrSelectorNotFound, fmt.Sprintf("selector not found: %s", step.Click), err)
		}

	case step.Fill != nil:
		if err := page.Fill(step.Fill.Selector, step.Fill.Value, playwright.PageFillOptions{}); err != nil {
			return classifyError(types.DriverErrSelectorNotFound, fmt.Sprintf("selector not found: %s", step.Fill.Selector), err)
		}

	case step.Wait != nil:
		if step.Wait.Selector != "" {
			opts := playwright.PageWaitForSelectorOptions{}
			if step.Wait.Milliseconds > 0 {
				opts.Timeout = playwright.Float(float64(step.Wait.Milliseconds))
			}
			if _, err := page.WaitForSelector(step.Wait.Selector, opts); err != nil {
				return classifyError(types.DriverErrTimeout, fmt.Sprintf("wait for %s failed", step.Wait.Selector), err)
			}
		} else {
			page.WaitForTimeout(float64(step.Wait.Milliseconds))
		}

	case step.Press != "":
		if err := page.Keyboard().Press(step.Press); err != nil {
			return types.NewDriverError(types.DriverErrScript, fmt.Sprintf("key press %q failed", step.Press), err)
		}

	case step.AssertText != nil:
		return d.assertText(page, step.AssertText)

	case step.AssertVisible != "":
		visible, err := page.IsVisible(step.AssertVisible)
		if err != nil {
			return classifyError(types.DriverErrSelectorNotFound, fmt.Sprintf("selector not found: %s", step.AssertVisible), err)
		}
		if !visible {
			return types.NewDriverError(types.DriverErrAssertion,
				fmt.Sprintf("expected %s to be visible", step.AssertVisible), nil)
		}
	}

	return nil
}

func (d *PlaywrightDriver) assertText(page playwright.Page, assert *AssertTextStep) *types.DriverError {
	element, err := page.QuerySelector(assert.Selector)
	if err != nil || element == nil {
		return classifyError(types.DriverErrSelectorNotFound,
			fmt.Sprintf("selector not found: %s", assert.Selector), err)
	}

	text, err := element.TextContent()
	if err != nil {
		return types.NewDriverError(types.DriverErrScript,
			fmt.Sprintf("text extraction failed for %s", assert.Selector), err)
	}
	text = strings.TrimSpace(text)

	if assert.Equals != "" && text != assert.Equals {
		return types.NewDriverError(types.DriverErrAssertion,
			fmt.Sprintf("expected %s text %q, got %q", assert.Selector, assert.Equals, text), nil)
	}
	if assert.Contains != "" && !strings.Contains(text, assert.Contains) {
		return types.NewDriverError(types.DriverErrAssertion,
			fmt.Sprintf("expected %s text to contain %q, got %q", assert.Selector, assert.Contains, text), nil)
	}
	return nil
}

// StartSession opens a session at url without running a test.
func (d *PlaywrightDriver) StartSession(ctx context.Context, url string) error {
	s, err := d.openSession()
	if err != nil {
		return err
	}
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{}); err != nil {
		d.ReleaseSession()
		return classifyError(types.DriverErrNavigation, fmt.Sprintf("navigation to %s failed", url), err)
	}
	return nil
}

// CaptureScreenshot returns a PNG of the current page.
func (d *PlaywrightDriver) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	s, err := d.currentSession()
	if err != nil {
		return nil, err
	}

	png, err := s.page.Screenshot(playwright.PageScreenshotOptions{})
	if err != nil {
		return nil, types.NewDriverError(types.DriverErrSession, "screenshot failed", err)
	}
	return png, nil
}

// TestContext snapshots the current page: URL, a bounded HTML excerpt, the
// captured console log, viewport, and user agent.
func (d *PlaywrightDriver) TestContext(ctx context.Context) (*types.TestContext, error) {
	s, err := d.currentSession()
	if err != nil {
		return nil, err
	}

	tc := &types.TestContext{
		URL:      s.page.URL(),
		Viewport: d.opts.Viewport,
	}

	if html, err := s.page.Content(); err == nil {
		if len(html) > htmlExcerptLimit {
			html = html[:htmlExcerptLimit]
		}
		tc.HTMLExcerpt = html
	}

	if ua, err := s.page.Evaluate("() => navigator.userAgent"); err == nil {
		if uaStr, ok := ua.(string); ok {
			tc.UserAgent = uaStr
		}
	}

	s.consoleMu.Lock()
	tc.ConsoleMessages = append(tc.ConsoleMessages, s.console...)
	s.consoleMu.Unlock()

	return tc, nil
}

// ExecuteFunctionCall validates and dispatches one primitive action from
// the agentic loop. Validation failures and execution errors come back in
// the result, never as panics; the loop decides what to do with them.
func (d *PlaywrightDriver) ExecuteFunctionCall(ctx context.Context, call *types.FunctionCall) *types.FunctionCallResult {
	if err := call.Validate(); err != nil {
		return &types.FunctionCallResult{Success: false, Error: err.Error()}
	}

	s, err := d.currentSession()
	if err != nil {
		return &types.FunctionCallResult{Success: false, Error: err.Error()}
	}

	result := &types.FunctionCallResult{Success: true}

	switch call.Action {
	case types.AgentActionClick:
		x, y := MapCoordinate(*call.Coordinate, d.opts.Viewport)
		if err := s.page.Mouse().Click(x, y); err != nil {
			return &types.FunctionCallResult{Success: false, Error: fmt.Sprintf("click at (%.0f,%.0f) failed: %v", x, y, err)}
		}
		result.Output = fmt.Sprintf("clicked at (%.0f,%.0f)", x, y)

	case types.AgentActionType:
		if err := s.page.Keyboard().Type(call.Text); err != nil {
			return &types.FunctionCallResult{Success: false, Error: fmt.Sprintf("type failed: %v", err)}
		}
		result.Output = fmt.Sprintf("typed %d characters", len(call.Text))

	case types.AgentActionKey:
		if err := s.page.Keyboard().Press(call.Text); err != nil {
			return &types.FunctionCallResult{Success: false, Error: fmt.Sprintf("key press %q failed: %v", call.Text, err)}
		}
		result.Output = fmt.Sprintf("pressed %s", call.Text)

	case types.AgentActionScroll:
		dx, dy := scrollDelta(call.Direction)
		if err := s.page.Mouse().Wheel(dx, dy); err != nil {
			return &types.FunctionCallResult{Success: false, Error: fmt.Sprintf("scroll failed: %v", err)}
		}
		result.Output = fmt.Sprintf("scrolled %s", call.Direction)

	case types.AgentActionWait:
		select {
		case <-time.After(time.Duration(call.Milliseconds) * time.Millisecond):
		case <-ctx.Done():
			return &types.FunctionCallResult{Success: false, Error: "wait canceled"}
		}
		result.Output = fmt.Sprintf("waited %dms", call.Milliseconds)

	case types.AgentActionScreenshot:
		result.Output = "screenshot captured"
	}

	// Every turn's observation includes a fresh screenshot; failure to
	// capture does not fail the action itself.
	if png, err := d.CaptureScreenshot(ctx); err == nil {
		result.Screenshot = png
	} else {
		d.log.Warnf("post-action screenshot failed: %v", err)
	}

	return result
}

func scrollDelta(dir types.ScrollDirection) (float64, float64) {
	switch dir {
	case types.ScrollUp:
		return 0, -scrollStep
	case types.ScrollDown:
		return 0, scrollStep
	case types.ScrollLeft:
		return -scrollStep, 0
	case types.ScrollRight:
		return scrollStep, 0
	}
	return 0, 0
}

// Close tears down the session and stops Playwright. Safe to call on every
// exit path.
func (d *PlaywrightDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closeSessionLocked()

	if d.initialized && d.pw != nil {
		if err := d.pw.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		d.initialized = false
	}
	return nil
}

// classifyError wraps a playwright error in a DriverError, promoting
// timeouts to their own kind so the orchestrator can tell a slow page from
// a missing element.
func classifyError(kind types.DriverErrorKind, message string, err error) *types.DriverError {
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "timeout") {
		kind = types.DriverErrTimeout
	}
	return types.NewDriverError(kind, message, err)
}

// asDriverError coerces an error into a DriverError, wrapping foreign
// errors as script failures.
func asDriverError(err error) *types.DriverError {
	if derr, ok := err.(*types.DriverError); ok {
		return derr
	}
	return types.NewDriverError(types.DriverErrScript, "test execution failed", err)
}
