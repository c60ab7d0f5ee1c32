package capture

import (
	"context"
	"testing"
	"time"

	"github.com/remedyqa/remedy/pkg/types"
	"github.com/stretchr/testify/assert"
)

// observeDriver is a driver.Driver that serves canned observations.
type observeDriver struct {
	screenshot    []byte
	screenshotErr error
	context       *types.TestContext
	contextErr    error
}

func (d *observeDriver) RunTest(ctx context.Context, path string) *types.TestResult { return nil }
func (d *observeDriver) StartSession(ctx context.Context, url string) error         { return nil }
func (d *observeDriver) Close() error                                               { return nil }

func (d *observeDriver) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	return d.screenshot, d.screenshotErr
}

func (d *observeDriver) TestContext(ctx context.Context) (*types.TestContext, error) {
	return d.context, d.contextErr
}

func (d *observeDriver) ExecuteFunctionCall(ctx context.Context, call *types.FunctionCall) *types.FunctionCallResult {
	return nil
}

func baseFailure() *types.TestFailure {
	return &types.TestFailure{
		TestName:  "checkout",
		TestPath:  "tests/checkout.test.yaml",
		Error:     types.NewDriverError(types.DriverErrSelectorNotFound, "selector not found: #buy", nil),
		Timestamp: time.Now(),
	}
}

func TestCaptureBothSucceed(t *testing.T) {
	d := &observeDriver{
		screenshot: []byte("png-bytes"),
		context:    &types.TestContext{URL: "https://shop.example.com/cart"},
	}

	got := NewCapturer(d).Capture(context.Background(), baseFailure())

	assert.Equal(t, []byte("png-bytes"), got.Screenshot)
	assert.NotNil(t, got.Context)
	assert.Equal(t, "https://shop.example.com/cart", got.Context.URL)
}

func TestCaptureScreenshotFailureKeepsContext(t *testing.T) {
	d := &observeDriver{
		screenshotErr: types.NewDriverError(types.DriverErrSession, "no active session", nil),
		context:       &types.TestContext{URL: "https://shop.example.com/cart"},
	}

	got := NewCapturer(d).Capture(context.Background(), baseFailure())

	assert.Nil(t, got.Screenshot)
	assert.NotNil(t, got.Context)
	assert.NotNil(t, got.Error, "original failure must survive capture problems")
}

func TestCaptureContextFailureKeepsScreenshot(t *testing.T) {
	d := &observeDriver{
		screenshot: []byte("png-bytes"),
		contextErr: types.NewDriverError(types.DriverErrSession, "page gone", nil),
	}

	got := NewCapturer(d).Capture(context.Background(), baseFailure())

	assert.Equal(t, []byte("png-bytes"), got.Screenshot)
	assert.Nil(t, got.Context)
}

func TestCaptureBothFailDegradesToBaseRecord(t *testing.T) {
	d := &observeDriver{
		screenshotErr: types.NewDriverError(types.DriverErrSession, "no active session", nil),
		contextErr:    types.NewDriverError(types.DriverErrSession, "no active session", nil),
	}

	base := baseFailure()
	got := NewCapturer(d).Capture(context.Background(), base)

	assert.Nil(t, got.Screenshot)
	assert.Nil(t, got.Context)
	assert.Equal(t, base.TestName, got.TestName)
	assert.Equal(t, base.Error, got.Error)
	assert.NotSame(t, base, got, "capture returns a copy, the base record is immutable")
}
