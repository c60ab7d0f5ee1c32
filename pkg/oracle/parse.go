package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/remedyqa/remedy/pkg/types"
)

// healingPayload mirrors the JSON contract in healingSystemPrompt.
type healingPayload struct {
	Actions        []*types.HealingAction `json:"actions"`
	Confidence     float64                `json:"confidence"`
	RequiresReview bool                   `json:"requires_review"`
}

// parseHealingResponse extracts and validates the model's proposal. Every
// field is untrusted: unknown action types, out-of-range confidences and
// mutations with no old value are dropped rather than passed downstream.
// A payload with no surviving actions is treated as malformed so the retry
// loop gets another shot at it.
func parseHealingResponse(content string) (*types.HealingResult, *types.OracleError) {
	raw, ok := extractJSON(content)
	if !ok {
		return nil, malformed("no JSON object in response")
	}

	var payload healingPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, malformed(fmt.Sprintf("undecodable JSON: %v", err))
	}

	if payload.Confidence < 0 || payload.Confidence > 1 {
		return nil, malformed(fmt.Sprintf("confidence %.3f out of range", payload.Confidence))
	}

	valid := make([]*types.HealingAction, 0, len(payload.Actions))
	for _, action := range payload.Actions {
		if action == nil {
			continue
		}
		if err := action.Validate(); err != nil {
			continue
		}
		valid = append(valid, action)
	}

	if len(valid) == 0 {
		return nil, malformed("no valid actions in payload")
	}

	return &types.HealingResult{
		Actions:        valid,
		Confidence:     payload.Confidence,
		RequiresReview: payload.RequiresReview,
	}, nil
}

func malformed(message string) *types.OracleError {
	return &types.OracleError{Kind: types.OracleErrMalformed, Message: message}
}

// extractJSON pulls the first balanced top-level JSON object out of model
// output, tolerating prose and markdown fences around it.
func extractJSON(content string) (string, bool) {
	content = stripFences(content)

	start := strings.IndexByte(content, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1], true
			}
		}
	}
	return "", false
}

func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		content = content[idx+1:]
	}
	if idx := strings.LastIndex(content, "```"); idx >= 0 {
		content = content[:idx]
	}
	return strings.TrimSpace(content)
}
