// Package tokenizer provides client-side token counting for cost estimates.
// Providers report exact usage when the API returns it; the tokenizer fills
// the gap for endpoints that omit usage and for pre-flight prompt sizing.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	"github.com/remedyqa/remedy/pkg/llm"
)

// messageOverhead approximates the per-message wrapping tokens the chat
// format adds around content.
const messageOverhead = 4

// Tokenizer counts tokens with the cl100k_base encoding, which is close
// enough for every OpenAI-compatible model this engine targets.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// New creates a tokenizer. Fails if the encoding cannot be loaded.
func New() (*Tokenizer, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding: %w", err)
	}
	return &Tokenizer{encoding: encoding}, nil
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// CountMessagesTokens returns the approximate token count of a conversation.
// Image attachments are not counted; vision token pricing is model-specific
// and the exact number comes back in API usage anyway.
func (t *Tokenizer) CountMessagesTokens(messages []*llm.Message) int {
	total := 0
	for _, msg := range messages {
		total += t.CountTokens(msg.Content) + t.CountTokens(string(msg.Role)) + messageOverhead
	}
	return total
}
