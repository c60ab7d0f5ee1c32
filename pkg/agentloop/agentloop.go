// Package agentloop drives a browser task without a script: each iteration
// observes the page through a screenshot, asks the oracle for the next
// action, executes it and feeds the outcome back. The loop is the safety
// boundary around a non-deterministic planner, so it enforces a hard
// iteration cap and treats anything it cannot interpret as a recoverable
// turn, never a crash.
package agentloop

import (
	"context"
	"fmt"

	"github.com/remedyqa/remedy/pkg/driver"
	"github.com/remedyqa/remedy/pkg/llm"
	"github.com/remedyqa/remedy/pkg/logging"
	"github.com/remedyqa/remedy/pkg/oracle"
	"github.com/remedyqa/remedy/pkg/types"
)

// Decider is the planning half of the loop. Satisfied by *oracle.Oracle.
type Decider interface {
	Decide(ctx context.Context, history []*llm.Message) (*oracle.Decision, error)
}

// Options tunes the loop.
type Options struct {
	// MaxIterations caps observe-decide-execute turns. The cap is absolute:
	// the loop stops there even mid-task.
	MaxIterations int

	// Verify, when set, must confirm the model's completion claim before
	// the loop reports success. A rejected claim is fed back as a new
	// observation and the loop continues.
	Verify func(ctx context.Context) bool
}

// Result is the outcome of one task run.
type Result struct {
	// Completed is true only when the model signalled completion and the
	// verifier (if any) agreed.
	Completed bool

	// Iterations is the number of turns consumed.
	Iterations int

	// Cost is the total model spend across all turns.
	Cost types.Cost

	// History is the full conversation, retained for reports and debugging.
	History []*llm.Message

	// FinalText is the model's last plain-text reply.
	FinalText string
}

// Loop runs natural-language browser tasks.
type Loop struct {
	driver  driver.Driver
	decider Decider
	opts    Options
	log     *logging.Logger
}

// New creates a loop over the given driver and decider.
func New(d driver.Driver, decider Decider, opts Options) *Loop {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 25
	}
	log, err := logging.NewLogger("agentloop")
	if err != nil {
		log.Warnf("agentloop logger fell back to stderr: %v", err)
	}
	return &Loop{driver: d, decider: decider, opts: opts, log: log}
}

// Run opens a session at startURL and works the task until the model
// signals completion, the iteration cap is hit, or the decider fails hard.
func (l *Loop) Run(ctx context.Context, task, startURL string) (*Result, error) {
	if err := l.driver.StartSession(ctx, startURL); err != nil {
		return nil, err
	}

	result := &Result{
		History: []*llm.Message{
			llm.NewSystemMessage(oracle.AgentSystemPrompt()),
		},
	}

	screenshot, err := l.driver.CaptureScreenshot(ctx)
	if err != nil {
		l.log.Warnf("initial screenshot failed: %v", err)
		result.History = append(result.History, llm.NewUserMessage(taskPrompt(task, startURL)))
	} else {
		result.History = append(result.History, llm.NewUserImageMessage(taskPrompt(task, startURL), screenshot))
	}

	for result.Iterations < l.opts.MaxIterations {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Iterations++

		decision, err := l.decider.Decide(ctx, result.History)
		if decision != nil {
			result.Cost.Add(decision.Cost)
		}
		if err != nil {
			l.log.Errorf("turn %d: decider failed: %v", result.Iterations, err)
			return result, err
		}

		result.History = append(result.History, llm.NewAssistantMessage(decision.Text))
		result.FinalText = decision.Text

		if decision.Terminal {
			if l.opts.Verify != nil && !l.opts.Verify(ctx) {
				l.log.Warnf("turn %d: completion claim rejected by verifier", result.Iterations)
				result.History = append(result.History, llm.NewUserMessage(
					"The task is not complete yet. Inspect the page again and continue with one JSON function call."))
				continue
			}
			result.Completed = true
			l.log.Infof("task completed after %d iteration(s)", result.Iterations)
			return result, nil
		}

		if decision.Call == nil {
			l.log.Warnf("turn %d: no actionable function call, asking again", result.Iterations)
			result.History = append(result.History, llm.NewUserMessage(
				"That was not a function call I understand. Reply with exactly one JSON function call, or the completion signal."))
			continue
		}

		l.executeTurn(ctx, decision.Call, result)
	}

	l.log.Warnf("iteration cap %d reached without completion", l.opts.MaxIterations)
	return result, nil
}

// executeTurn runs one function call and appends the observation. Driver
// failures and invalid calls are reported back to the model as text so it
// can adjust course.
func (l *Loop) executeTurn(ctx context.Context, call *types.FunctionCall, result *Result) {
	l.log.Debugf("turn %d: executing %s", result.Iterations, call.Action)

	callResult := l.driver.ExecuteFunctionCall(ctx, call)

	var observation string
	if callResult.Success {
		observation = fmt.Sprintf("Action %s succeeded.", call.Action)
		if callResult.Output != "" {
			observation += " " + callResult.Output
		}
	} else {
		observation = fmt.Sprintf("Action %s failed: %s. Adjust and continue.", call.Action, callResult.Error)
	}

	if len(callResult.Screenshot) > 0 {
		result.History = append(result.History, llm.NewUserImageMessage(observation, callResult.Screenshot))
	} else {
		result.History = append(result.History, llm.NewUserMessage(observation))
	}
}

func taskPrompt(task, startURL string) string {
	return fmt.Sprintf("Task: %s\n\nThe browser is open at %s. The first screenshot is attached. Respond with your first function call.", task, startURL)
}
