package healer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remedyqa/remedy/pkg/config"
	"github.com/remedyqa/remedy/pkg/types"
)

const sampleScript = `name: checkout flow
url: https://shop.example.com
steps:
  - click: "#buy-now"
  - wait: 5000
  - assert_text:
      selector: ".toast"
      text: "Added to cart"
`

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checkout.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestApplyHealingSelectorFix(t *testing.T) {
	path := writeScript(t, sampleScript)
	applier := NewApplier(config.FrameworkYAML)

	actions := []*types.HealingAction{{
		Type:        types.ActionSelectorFix,
		Description: "stale id selector",
		OldValue:    "#buy-now",
		NewValue:    "[data-testid=buy-now]",
		Confidence:  0.9,
	}}

	backup, err := applier.ApplyHealing(path, actions)
	require.NoError(t, err)

	assert.True(t, actions[0].Applied)
	assert.Contains(t, readFile(t, path), "[data-testid=buy-now]")
	assert.NotContains(t, readFile(t, path), "#buy-now")

	require.NotEmpty(t, backup)
	assert.Equal(t, sampleScript, readFile(t, backup), "backup preserves the original bytes")
}

func TestApplyHealingAppliesActionsInOrder(t *testing.T) {
	path := writeScript(t, sampleScript)
	applier := NewApplier(config.FrameworkYAML)

	actions := []*types.HealingAction{
		{
			Type:       types.ActionWaitAdjustment,
			OldValue:   "wait: 5000",
			NewValue:   "wait: 15000",
			Confidence: 0.8,
		},
		{
			Type:       types.ActionAssertionUpdate,
			OldValue:   "Added to cart",
			NewValue:   "Item added",
			Confidence: 0.7,
		},
	}

	_, err := applier.ApplyHealing(path, actions)
	require.NoError(t, err)

	got := readFile(t, path)
	assert.Contains(t, got, "wait: 15000")
	assert.Contains(t, got, "Item added")
	assert.True(t, actions[0].Applied)
	assert.True(t, actions[1].Applied)
}

func TestApplyHealingSkipsMissingTarget(t *testing.T) {
	path := writeScript(t, sampleScript)
	applier := NewApplier(config.FrameworkYAML)

	actions := []*types.HealingAction{
		{
			Type:       types.ActionSelectorFix,
			OldValue:   "#does-not-exist",
			NewValue:   "#whatever",
			Confidence: 0.9,
		},
		{
			Type:       types.ActionSelectorFix,
			OldValue:   "#buy-now",
			NewValue:   "#buy",
			Confidence: 0.9,
		},
	}

	_, err := applier.ApplyHealing(path, actions)
	require.NoError(t, err)

	assert.False(t, actions[0].Applied, "unmatched action stays unapplied")
	assert.True(t, actions[1].Applied)
	assert.Contains(t, readFile(t, path), "#buy")
}

func TestApplyHealingNoActionsLeavesFileUntouched(t *testing.T) {
	path := writeScript(t, sampleScript)
	applier := NewApplier(config.FrameworkYAML)

	backup, err := applier.ApplyHealing(path, nil)
	require.NoError(t, err)

	assert.Empty(t, backup, "no mutation means no backup")
	assert.Equal(t, sampleScript, readFile(t, path))
}

func TestApplyHealingTimingFixInsertsWaitBeforeAnchor(t *testing.T) {
	path := writeScript(t, sampleScript)
	applier := NewApplier(config.FrameworkYAML)

	actions := []*types.HealingAction{{
		Type:       types.ActionTimingFix,
		OldValue:   `click: "#buy-now"`,
		NewValue:   "1500",
		Confidence: 0.8,
	}}

	_, err := applier.ApplyHealing(path, actions)
	require.NoError(t, err)

	got := readFile(t, path)
	assert.Contains(t, got, "  - wait: 1500\n  - click:")
	assert.True(t, actions[0].Applied)
}

func TestWaitStatementPerFramework(t *testing.T) {
	tests := []struct {
		framework config.Framework
		want      string
	}{
		{config.FrameworkYAML, "- wait: 250"},
		{config.FrameworkCypress, "cy.wait(250);"},
		{config.FrameworkPlaywright, "await page.waitForTimeout(250);"},
		{config.FrameworkPuppeteer, "await new Promise((r) => setTimeout(r, 250));"},
	}

	for _, tt := range tests {
		t.Run(string(tt.framework), func(t *testing.T) {
			applier := NewApplier(tt.framework)
			assert.Equal(t, tt.want, applier.waitStatement(250))
		})
	}
}

func TestApplyHealingRejectsBadTimingValues(t *testing.T) {
	path := writeScript(t, sampleScript)
	applier := NewApplier(config.FrameworkYAML)

	actions := []*types.HealingAction{
		{Type: types.ActionTimingFix, OldValue: "click", NewValue: "soon", Confidence: 0.8},
		{Type: types.ActionTimingFix, OldValue: "click", NewValue: "-5", Confidence: 0.8},
		{Type: types.ActionTimingFix, OldValue: "", NewValue: "1000", Confidence: 0.8},
	}

	backup, err := applier.ApplyHealing(path, actions)
	require.NoError(t, err)

	assert.Empty(t, backup)
	for _, action := range actions {
		assert.False(t, action.Applied)
	}
}

func TestApplyHealingMissingFile(t *testing.T) {
	applier := NewApplier(config.FrameworkYAML)

	_, err := applier.ApplyHealing(filepath.Join(t.TempDir(), "gone.test.yaml"), nil)

	var aerr *types.ApplierError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, types.ApplierErrRead, aerr.Kind)
}

func TestApplyHealingBackupNamesAreUnique(t *testing.T) {
	path := writeScript(t, sampleScript)
	applier := NewApplier(config.FrameworkYAML)

	stamp := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	applier.now = func() time.Time { return stamp }

	backup, err := applier.ApplyHealing(path, []*types.HealingAction{{
		Type:       types.ActionSelectorFix,
		OldValue:   "#buy-now",
		NewValue:   "#buy",
		Confidence: 0.9,
	}})
	require.NoError(t, err)

	assert.Equal(t, path+".20260314-092653.589793238.bak", backup)
}
