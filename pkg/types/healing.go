// Package types defines the core data model shared across the engine:
// healing actions, failure records, test results, and the function-call
// protocol used by the agentic action loop.
package types

import (
	"fmt"
	"time"
)

// ActionType identifies the kind of mutation a healing action performs.
type ActionType string

const (
	// ActionSelectorFix replaces a stale selector with a working one.
	ActionSelectorFix ActionType = "selector_fix"

	// ActionWaitAdjustment changes the duration of an existing wait.
	ActionWaitAdjustment ActionType = "wait_adjustment"

	// ActionAssertionUpdate replaces an assertion's expected value.
	ActionAssertionUpdate ActionType = "assertion_update"

	// ActionTimingFix inserts a wait near an anchor statement.
	ActionTimingFix ActionType = "timing_fix"
)

// KnownActionTypes lists every action type the applier can dispatch on.
var KnownActionTypes = []ActionType{
	ActionSelectorFix,
	ActionWaitAdjustment,
	ActionAssertionUpdate,
	ActionTimingFix,
}

// Valid reports whether t is one of the four known action types.
func (t ActionType) Valid() bool {
	switch t {
	case ActionSelectorFix, ActionWaitAdjustment, ActionAssertionUpdate, ActionTimingFix:
		return true
	}
	return false
}

// HealingAction is one proposed, typed mutation to a test artifact.
// Produced by the oracle, consumed by the applier. Applied is set exactly
// once, when the applier successfully rewrites the backing artifact.
type HealingAction struct {
	Type        ActionType `json:"type"`
	Description string     `json:"description"`
	OldValue    string     `json:"old_value"`
	NewValue    string     `json:"new_value"`
	Confidence  float64    `json:"confidence"`
	Reasoning   string     `json:"reasoning,omitempty"`
	Applied     bool       `json:"applied"`
}

// RequiresOldValue reports whether the action's type carries a mutation
// that needs a non-empty OldValue to anchor the rewrite.
func (a *HealingAction) RequiresOldValue() bool {
	switch a.Type {
	case ActionSelectorFix, ActionAssertionUpdate, ActionWaitAdjustment:
		return true
	case ActionTimingFix:
		// Timing fixes anchor on OldValue when present but may also
		// append to the artifact, so an empty anchor is allowed.
		return false
	}
	return false
}

// Validate checks the invariants the engine enforces on untrusted oracle
// output before an action may enter the healing pipeline.
func (a *HealingAction) Validate() error {
	if !a.Type.Valid() {
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", a.Confidence)
	}
	if a.RequiresOldValue() && a.OldValue == "" {
		return fmt.Errorf("action type %q requires a non-empty old_value", a.Type)
	}
	return nil
}

// Cost records the token and dollar spend of one oracle consultation.
type Cost struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	USD              float64 `json:"usd"`
}

// Add accumulates another cost into c.
func (c *Cost) Add(other Cost) {
	c.PromptTokens += other.PromptTokens
	c.CompletionTokens += other.CompletionTokens
	c.TotalTokens += other.TotalTokens
	c.USD += other.USD
}

// HealingResult is the outcome of one healing consultation. It is never
// mutated after construction; the Applied flags on its actions are the
// only fields written later, by the applier.
type HealingResult struct {
	Actions    []*HealingAction `json:"actions"`
	Confidence float64          `json:"confidence"`
	Cost       Cost             `json:"cost"`
	Retries    int              `json:"retries"`
	CreatedAt  time.Time        `json:"created_at"`

	// RequiresReview is the oracle's own judgment that a human should
	// look at the proposed actions before they are applied. It gates
	// auto-apply alongside the confidence threshold.
	RequiresReview bool `json:"requires_review"`
}

// Empty reports whether the result carries no usable actions. The oracle
// client returns an empty (non-nil) result when retries are exhausted so
// the orchestrator always has a well-formed object to reason about.
func (r *HealingResult) Empty() bool {
	return r == nil || len(r.Actions) == 0
}

// AppliedCount returns the number of actions the applier marked applied.
func (r *HealingResult) AppliedCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, a := range r.Actions {
		if a.Applied {
			n++
		}
	}
	return n
}
