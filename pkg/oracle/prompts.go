package oracle

import (
	"fmt"
	"strings"

	"github.com/remedyqa/remedy/pkg/types"
)

// healingSystemPrompt instructs the model to act as a test-repair analyst
// and constrains the response to the JSON schema the client validates.
const healingSystemPrompt = `You are an expert test automation engineer. You analyze failed browser
end-to-end tests using the failure details and a screenshot of the page at
failure time, then propose concrete fixes to the test artifact.

Respond with a single JSON object and nothing else:

{
  "actions": [
    {
      "type": "selector_fix" | "wait_adjustment" | "assertion_update" | "timing_fix",
      "description": "what this fix does",
      "old_value": "exact text currently in the test artifact",
      "new_value": "replacement text",
      "confidence": 0.0-1.0,
      "reasoning": "why this fixes the failure"
    }
  ],
  "confidence": 0.0-1.0,
  "requires_review": false
}

Rules:
- Order actions by priority, most promising first.
- old_value must be text that literally appears in the artifact.
- Use selector_fix when an element moved or was renamed, wait_adjustment to
  change an existing wait, timing_fix to insert a new wait, and
  assertion_update only when the application behavior legitimately changed.
- Set requires_review to true when you are unsure the fix is safe.
- If you cannot propose any fix, return {"actions": [], "confidence": 0}.`

// agentSystemPrompt drives the turn-by-turn autonomous mode: exactly one
// function call per turn, or a terminal verdict.
const agentSystemPrompt = `You are an autonomous browser operator. Each turn you receive a screenshot
of the current page and the result of your previous action. Decide the single
next action that advances the task.

Respond with exactly one JSON object and nothing else:

{"action": "click", "coordinate": {"x": 0-1000, "y": 0-1000}}
{"action": "type", "text": "..."}
{"action": "key", "text": "Enter"}
{"action": "scroll", "direction": "up" | "down" | "left" | "right"}
{"action": "wait", "milliseconds": 500}
{"action": "screenshot"}

Coordinates are normalized to a 0-1000 grid over the viewport.

When the task is complete, respond with plain text containing the marker
` + CompletionSignal + ` followed by a one-line summary. If the task cannot
be completed, respond with plain text explaining why.`

// CompletionSignal is the terminal marker the agentic loop scans for in a
// textual oracle response.
const CompletionSignal = "TASK_COMPLETE"

// AgentSystemPrompt returns the system prompt for the autonomous browser
// mode. Exposed so the loop owns its conversation from the first message.
func AgentSystemPrompt() string { return agentSystemPrompt }

// buildHealingPrompt renders the failure record (and previously attempted
// actions, so the oracle does not repeat a failed fix) into the user turn.
func buildHealingPrompt(failure *types.TestFailure, artifact string, prior []*types.HealingAction) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Test %q failed.\n\n", failure.TestName)
	if failure.Error != nil {
		fmt.Fprintf(&b, "Failure kind: %s\nFailure message: %s\n", failure.Error.Kind, failure.Error.Message)
	}
	if failure.StackTrace != "" {
		fmt.Fprintf(&b, "\nStack trace:\n%s\n", failure.StackTrace)
	}

	if ctx := failure.Context; ctx != nil {
		fmt.Fprintf(&b, "\nPage URL: %s\n", ctx.URL)
		fmt.Fprintf(&b, "Viewport: %dx%d\n", ctx.Viewport.Width, ctx.Viewport.Height)
		if len(ctx.ConsoleMessages) > 0 {
			b.WriteString("\nConsole messages:\n")
			for _, msg := range ctx.ConsoleMessages {
				fmt.Fprintf(&b, "  [%s] %s\n", msg.Level, msg.Text)
			}
		}
		if ctx.HTMLExcerpt != "" {
			fmt.Fprintf(&b, "\nDOM excerpt:\n%s\n", ctx.HTMLExcerpt)
		}
	}

	if artifact != "" {
		fmt.Fprintf(&b, "\nTest artifact (%s):\n%s\n", failure.TestPath, artifact)
	}

	if len(prior) > 0 {
		b.WriteString("\nPreviously attempted fixes that did NOT resolve the failure (do not repeat them):\n")
		for _, a := range prior {
			fmt.Fprintf(&b, "  - %s: %q -> %q (applied=%v)\n", a.Type, a.OldValue, a.NewValue, a.Applied)
		}
	}

	b.WriteString("\nA screenshot of the page at failure time is attached.")
	return b.String()
}
