package types

import "time"

// Viewport is the browser viewport size in pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ConsoleMessage is one browser console entry captured during a run.
type ConsoleMessage struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// TestContext is a read-only snapshot of the page state at failure time.
type TestContext struct {
	URL             string           `json:"url"`
	HTMLExcerpt     string           `json:"html_excerpt"`
	ConsoleMessages []ConsoleMessage `json:"console_messages,omitempty"`
	Viewport        Viewport         `json:"viewport"`
	UserAgent       string           `json:"user_agent,omitempty"`
}

// TestFailure is the structured record assembled when a test attempt fails.
// Created once per failed attempt and never mutated; the orchestrator owns
// it for the duration of one attempt.
type TestFailure struct {
	TestName   string       `json:"test_name"`
	TestPath   string       `json:"test_path"`
	Error      *DriverError `json:"error"`
	Screenshot []byte       `json:"-"`
	Timestamp  time.Time    `json:"timestamp"`
	StackTrace string       `json:"stack_trace,omitempty"`
	Context    *TestContext `json:"context,omitempty"`
}
