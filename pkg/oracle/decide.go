package oracle

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/remedyqa/remedy/pkg/llm"
	"github.com/remedyqa/remedy/pkg/types"
)

// Decision is one turn of the agentic loop: either a function call to
// execute, a terminal text reply, or raw content the loop could not
// interpret (logged and skipped by the caller).
type Decision struct {
	// Call is non-nil when the model requested exactly one browser action.
	Call *types.FunctionCall

	// Text is the plain-text reply when no function call was found. The
	// loop checks it for the completion signal.
	Text string

	// Terminal reports whether Text contains the completion signal.
	Terminal bool

	// Cost is the spend for this turn, including retries.
	Cost types.Cost
}

// Decide asks the model for the next browser action given the conversation
// so far. Transport-level instability (network errors, empty payloads) is
// retried with the same bounded backoff as healing consultations; content
// the model produced but the client cannot interpret is returned as raw
// text so the loop can log it and move on rather than burn retries.
func (o *Oracle) Decide(ctx context.Context, history []*llm.Message) (*Decision, error) {
	decision := &Decision{}
	ceiling := o.opts.MaxOutputTokens

	for attempt := 0; ; attempt++ {
		completion, oerr := o.callOnce(ctx, history, ceiling)
		if completion != nil {
			decision.Cost.Add(o.costOf(history, completion))
		}

		if oerr == nil {
			o.interpret(completion.Content, decision)
			return decision, nil
		}

		o.log.Warnf("decision attempt %d failed: %v", attempt+1, oerr)

		if attempt >= o.opts.MaxRetries {
			return decision, oerr
		}

		ceiling = shrinkCeiling(ceiling)
		if err := o.sleep(ctx, o.opts.BackoffBase*time.Duration(attempt+1)); err != nil {
			return decision, oerr
		}
	}
}

// interpret fills in the decision from raw model output. Parsing is
// deliberately lenient: a JSON object with an "action" key becomes a
// function call even when other fields are off, so that validation failures
// surface through FunctionCall.Validate at execution time where the loop
// logs and skips them.
func (o *Oracle) interpret(content string, decision *Decision) {
	decision.Text = strings.TrimSpace(content)
	decision.Terminal = strings.Contains(decision.Text, CompletionSignal)

	raw, ok := extractJSON(content)
	if !ok {
		return
	}

	var call types.FunctionCall
	if err := json.Unmarshal([]byte(raw), &call); err != nil {
		o.log.Debugf("decision JSON undecodable, treating as text: %v", err)
		return
	}
	if call.Action == "" {
		return
	}

	decision.Call = &call
}
