package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/remedyqa/remedy/pkg/types"
	"gopkg.in/yaml.v3"
)

// Script is the native YAML test format. Parsing of external test-authoring
// syntaxes is out of scope; healing mutations treat artifacts as text, so
// they remain format-agnostic.
type Script struct {
	// Name identifies the test; defaults to the file name.
	Name string `yaml:"name"`

	// URL is the initial navigation target.
	URL string `yaml:"url"`

	// Steps run in order; the first failure ends the attempt.
	Steps []Step `yaml:"steps"`
}

// Step is one test action. Exactly one field must be set.
type Step struct {
	Navigate      string          `yaml:"navigate,omitempty"`
	Click         string          `yaml:"click,omitempty"`
	Fill          *FillStep       `yaml:"fill,omitempty"`
	Wait          *WaitStep       `yaml:"wait,omitempty"`
	Press         string          `yaml:"press,omitempty"`
	AssertText    *AssertTextStep `yaml:"assert_text,omitempty"`
	AssertVisible string          `yaml:"assert_visible,omitempty"`
}

// FillStep types a value into an input element.
type FillStep struct {
	Selector string `yaml:"selector"`
	Value    string `yaml:"value"`
}

// WaitStep waits for a selector to appear, or sleeps when only
// Milliseconds is set.
type WaitStep struct {
	Selector     string `yaml:"selector,omitempty"`
	Milliseconds int    `yaml:"ms,omitempty"`
}

// AssertTextStep checks the text content of a matched element.
type AssertTextStep struct {
	Selector string `yaml:"selector"`
	Equals   string `yaml:"equals,omitempty"`
	Contains string `yaml:"contains,omitempty"`
}

// Kind returns a short name for the single action a step carries, used in
// failure messages and logs.
func (s *Step) Kind() string {
	switch {
	case s.Navigate != "":
		return "navigate"
	case s.Click != "":
		return "click"
	case s.Fill != nil:
		return "fill"
	case s.Wait != nil:
		return "wait"
	case s.Press != "":
		return "press"
	case s.AssertText != nil:
		return "assert_text"
	case s.AssertVisible != "":
		return "assert_visible"
	}
	return "empty"
}

func (s *Step) validate(index int) error {
	set := 0
	if s.Navigate != "" {
		set++
	}
	if s.Click != "" {
		set++
	}
	if s.Fill != nil {
		set++
		if s.Fill.Selector == "" {
			return fmt.Errorf("step %d: fill requires a selector", index)
		}
	}
	if s.Wait != nil {
		set++
		if s.Wait.Selector == "" && s.Wait.Milliseconds <= 0 {
			return fmt.Errorf("step %d: wait requires a selector or positive ms", index)
		}
	}
	if s.Press != "" {
		set++
	}
	if s.AssertText != nil {
		set++
		if s.AssertText.Selector == "" {
			return fmt.Errorf("step %d: assert_text requires a selector", index)
		}
		if s.AssertText.Equals == "" && s.AssertText.Contains == "" {
			return fmt.Errorf("step %d: assert_text requires equals or contains", index)
		}
	}
	if s.AssertVisible != "" {
		set++
	}

	if set == 0 {
		return fmt.Errorf("step %d: no action set", index)
	}
	if set > 1 {
		return fmt.Errorf("step %d: multiple actions set", index)
	}
	return nil
}

// LoadScript parses and validates a test script file. Parse and validation
// problems are DriverErrors of kind script so the orchestrator can record
// them as ordinary test failures.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewDriverError(types.DriverErrScript,
			fmt.Sprintf("failed to read test script %s", path), err)
	}

	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, types.NewDriverError(types.DriverErrScript,
			fmt.Sprintf("invalid YAML in test script %s", path), err)
	}

	if script.Name == "" {
		script.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if script.URL == "" {
		return nil, types.NewDriverError(types.DriverErrScript,
			fmt.Sprintf("test script %s has no url", path), nil)
	}
	if len(script.Steps) == 0 {
		return nil, types.NewDriverError(types.DriverErrScript,
			fmt.Sprintf("test script %s has no steps", path), nil)
	}

	for i := range script.Steps {
		if err := script.Steps[i].validate(i); err != nil {
			return nil, types.NewDriverError(types.DriverErrScript, err.Error(), nil)
		}
	}

	return &script, nil
}
