package types

import "testing"

func TestActionTypeValid(t *testing.T) {
	tests := []struct {
		typ  ActionType
		want bool
	}{
		{ActionSelectorFix, true},
		{ActionWaitAdjustment, true},
		{ActionAssertionUpdate, true},
		{ActionTimingFix, true},
		{ActionType("css_fix"), false},
		{ActionType(""), false},
	}

	for _, tt := range tests {
		if got := tt.typ.Valid(); got != tt.want {
			t.Errorf("ActionType(%q).Valid() = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestHealingActionValidate(t *testing.T) {
	tests := []struct {
		name    string
		action  HealingAction
		wantErr bool
	}{
		{
			name:   "valid selector fix",
			action: HealingAction{Type: ActionSelectorFix, OldValue: "#old", NewValue: "#new", Confidence: 0.9},
		},
		{
			name:    "unknown type",
			action:  HealingAction{Type: "retry_harder", OldValue: "x", Confidence: 0.5},
			wantErr: true,
		},
		{
			name:    "confidence above one",
			action:  HealingAction{Type: ActionSelectorFix, OldValue: "#old", Confidence: 1.5},
			wantErr: true,
		},
		{
			name:    "negative confidence",
			action:  HealingAction{Type: ActionSelectorFix, OldValue: "#old", Confidence: -0.1},
			wantErr: true,
		},
		{
			name:    "selector fix without old value",
			action:  HealingAction{Type: ActionSelectorFix, NewValue: "#new", Confidence: 0.8},
			wantErr: true,
		},
		{
			name:   "timing fix may omit old value",
			action: HealingAction{Type: ActionTimingFix, NewValue: "wait: 500", Confidence: 0.6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHealingResultEmpty(t *testing.T) {
	var nilResult *HealingResult
	if !nilResult.Empty() {
		t.Error("nil result should be empty")
	}

	empty := &HealingResult{}
	if !empty.Empty() {
		t.Error("result with no actions should be empty")
	}

	full := &HealingResult{Actions: []*HealingAction{{Type: ActionSelectorFix}}}
	if full.Empty() {
		t.Error("result with actions should not be empty")
	}
}

func TestCostAdd(t *testing.T) {
	c := Cost{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, USD: 0.01}
	c.Add(Cost{PromptTokens: 200, CompletionTokens: 100, TotalTokens: 300, USD: 0.02})

	if c.TotalTokens != 450 {
		t.Errorf("TotalTokens = %d, want 450", c.TotalTokens)
	}
	if c.USD != 0.03 {
		t.Errorf("USD = %v, want 0.03", c.USD)
	}
}
