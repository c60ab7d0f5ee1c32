// Package oracle is the client boundary to the external decision service:
// a vision-capable model consulted for test repairs and, in agentic mode,
// for the single next browser action. The service is non-deterministic and
// its output is untrusted; everything that crosses this boundary is
// validated, and raw API instability (empty or truncated payloads) is
// absorbed here by a bounded retry state machine rather than surfacing as
// exceptions.
package oracle

import (
	"context"
	"errors"
	"time"

	"github.com/remedyqa/remedy/pkg/llm"
	"github.com/remedyqa/remedy/pkg/llm/openai"
	"github.com/remedyqa/remedy/pkg/llm/tokenizer"
	"github.com/remedyqa/remedy/pkg/logging"
	"github.com/remedyqa/remedy/pkg/types"
)

const (
	// minOutputTokens is the floor the retry ceiling never shrinks below.
	minOutputTokens = 256
)

// Options tunes the oracle client.
type Options struct {
	// MaxRetries caps re-requests after empty or malformed responses.
	MaxRetries int

	// BackoffBase is the first retry delay; retry n waits BackoffBase*n.
	BackoffBase time.Duration

	// MaxOutputTokens is the initial response ceiling, halved per retry
	// to reduce truncation risk on unstable endpoints.
	MaxOutputTokens int

	// CallTimeout bounds each individual model call.
	CallTimeout time.Duration
}

// Oracle is the validating adapter in front of the decision service.
type Oracle struct {
	provider  llm.Provider
	tokenizer *tokenizer.Tokenizer
	opts      Options
	log       *logging.Logger

	// sleep is swapped out in tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an oracle client over the given provider.
func New(provider llm.Provider, opts Options) *Oracle {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 2 * time.Second
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = 4096
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 60 * time.Second
	}

	log, err := logging.NewLogger("oracle")
	if err != nil {
		log.Warnf("oracle logger fell back to stderr: %v", err)
	}

	tok, err := tokenizer.New()
	if err != nil {
		// Cost estimates degrade to API-reported usage only.
		log.Warnf("tokenizer unavailable: %v", err)
		tok = nil
	}

	return &Oracle{
		provider:  provider,
		tokenizer: tok,
		opts:      opts,
		log:       log,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProposeHealing consults the oracle about a failure and returns validated
// corrective actions. It never returns an error: when every attempt is
// exhausted the result is empty (zero actions) with the retry count and the
// spend so far recorded, so the orchestrator can record healing_failed
// cleanly.
func (o *Oracle) ProposeHealing(ctx context.Context, failure *types.TestFailure, artifact string, prior []*types.HealingAction) *types.HealingResult {
	messages := []*llm.Message{
		llm.NewSystemMessage(healingSystemPrompt),
		llm.NewUserImageMessage(buildHealingPrompt(failure, artifact, prior), failure.Screenshot),
	}

	result := &types.HealingResult{CreatedAt: time.Now()}
	ceiling := o.opts.MaxOutputTokens

	for attempt := 0; ; attempt++ {
		completion, oerr := o.callOnce(ctx, messages, ceiling)
		if completion != nil {
			result.Cost.Add(o.costOf(messages, completion))
		}

		if oerr == nil {
			parsed, perr := parseHealingResponse(completion.Content)
			if perr == nil {
				parsed.Cost = result.Cost
				parsed.Retries = result.Retries
				parsed.CreatedAt = result.CreatedAt
				o.log.Infof("healing proposal for %s: %d action(s), confidence %.2f, retries %d",
					failure.TestName, len(parsed.Actions), parsed.Confidence, parsed.Retries)
				return parsed
			}
			oerr = perr
		}

		o.log.Warnf("healing consultation attempt %d failed: %v", attempt+1, oerr)

		if attempt >= o.opts.MaxRetries {
			o.log.Errorf("healing retries exhausted for %s after %d attempt(s)", failure.TestName, attempt+1)
			return result
		}

		result.Retries++
		ceiling = shrinkCeiling(ceiling)

		if err := o.sleep(ctx, o.opts.BackoffBase*time.Duration(attempt+1)); err != nil {
			o.log.Warnf("backoff interrupted: %v", err)
			return result
		}
	}
}

// callOnce performs one model call with its own timeout and classifies the
// failure modes the retry loop cares about.
func (o *Oracle) callOnce(ctx context.Context, messages []*llm.Message, maxTokens int) (*llm.Completion, *types.OracleError) {
	callCtx, cancel := context.WithTimeout(ctx, o.opts.CallTimeout)
	defer cancel()

	completion, err := o.provider.Complete(callCtx, messages, &llm.CompletionOptions{MaxTokens: maxTokens})
	if err != nil {
		return nil, classifyCallError(err)
	}

	if completion.Content == "" {
		return completion, &types.OracleError{Kind: types.OracleErrEmpty, Message: "model returned an empty payload"}
	}

	return completion, nil
}

func classifyCallError(err error) *types.OracleError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &types.OracleError{Kind: types.OracleErrTimeout, Message: "oracle call timed out", Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
		return &types.OracleError{Kind: types.OracleErrRateLimit, Message: "rate limited", Err: err}
	}

	return &types.OracleError{Kind: types.OracleErrNetwork, Message: "oracle call failed", Err: err}
}

// costOf prefers API-reported usage and falls back to a client-side
// estimate when the endpoint omits it.
func (o *Oracle) costOf(messages []*llm.Message, completion *llm.Completion) types.Cost {
	cost := types.Cost{
		PromptTokens:     completion.PromptTokens,
		CompletionTokens: completion.CompletionTokens,
	}

	if cost.PromptTokens == 0 && o.tokenizer != nil {
		cost.PromptTokens = o.tokenizer.CountMessagesTokens(messages)
	}
	if cost.CompletionTokens == 0 && o.tokenizer != nil {
		cost.CompletionTokens = o.tokenizer.CountTokens(completion.Content)
	}

	cost.TotalTokens = cost.PromptTokens + cost.CompletionTokens
	cost.USD = estimateUSD(cost)
	return cost
}

// estimateUSD applies a rough blended vision-model rate. Reports label the
// number an estimate.
func estimateUSD(c types.Cost) float64 {
	const promptPerM, completionPerM = 2.50, 10.0
	return float64(c.PromptTokens)*promptPerM/1e6 + float64(c.CompletionTokens)*completionPerM/1e6
}

func shrinkCeiling(ceiling int) int {
	ceiling /= 2
	if ceiling < minOutputTokens {
		return minOutputTokens
	}
	return ceiling
}
