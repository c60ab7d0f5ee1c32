// Package healer applies validated healing actions to test artifacts on
// disk. Application is in-order and best-effort: an action whose target
// string is absent is skipped, every performed mutation marks its action
// Applied, and the original file is backed up before the first write so a
// reviewer can always diff or restore.
package healer

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/remedyqa/remedy/pkg/config"
	"github.com/remedyqa/remedy/pkg/logging"
	"github.com/remedyqa/remedy/pkg/types"
)

// Applier rewrites test artifacts according to healing actions.
type Applier struct {
	framework config.Framework
	log       *logging.Logger

	// now stamps backup filenames; injectable for deterministic tests.
	now func() time.Time
}

// NewApplier creates an applier that renders timing fixes in the syntax of
// the given test framework.
func NewApplier(framework config.Framework) *Applier {
	log, err := logging.NewLogger("healer")
	if err != nil {
		log.Warnf("healer logger fell back to stderr: %v", err)
	}
	return &Applier{framework: framework, log: log, now: time.Now}
}

// ApplyHealing applies actions to the artifact at testPath, in order. Each
// action that changes the content is marked Applied; actions whose target
// cannot be located are skipped and left unmarked, so partial application
// is visible to the caller. The returned backup path is empty when no
// action changed anything (the artifact is then byte-identical and never
// rewritten).
func (a *Applier) ApplyHealing(testPath string, actions []*types.HealingAction) (string, error) {
	original, err := os.ReadFile(testPath)
	if err != nil {
		return "", &types.ApplierError{Kind: types.ApplierErrRead, Path: testPath, Err: err}
	}

	content := string(original)
	for _, action := range actions {
		mutated, ok := a.applyAction(content, action)
		if !ok {
			a.log.Warnf("skipping %s on %s: target not found", action.Type, testPath)
			continue
		}
		content = mutated
		action.Applied = true
		a.log.Infof("applied %s to %s: %s", action.Type, testPath, action.Description)
	}

	if content == string(original) {
		return "", nil
	}

	backupPath := fmt.Sprintf("%s.%s.bak", testPath, a.now().Format("20060102-150405.000000000"))
	if err := os.WriteFile(backupPath, original, 0644); err != nil {
		a.unmarkAll(actions)
		return "", &types.ApplierError{Kind: types.ApplierErrBackup, Path: backupPath, Err: err}
	}

	if err := os.WriteFile(testPath, []byte(content), 0644); err != nil {
		a.unmarkAll(actions)
		return backupPath, &types.ApplierError{Kind: types.ApplierErrWrite, Path: testPath, Err: err}
	}

	return backupPath, nil
}

// unmarkAll rolls back Applied flags when the rewrite never reached disk.
func (a *Applier) unmarkAll(actions []*types.HealingAction) {
	for _, action := range actions {
		action.Applied = false
	}
}

// applyAction returns the mutated content and whether the action took
// effect.
func (a *Applier) applyAction(content string, action *types.HealingAction) (string, bool) {
	switch action.Type {
	case types.ActionSelectorFix:
		if !strings.Contains(content, action.OldValue) {
			return content, false
		}
		return strings.ReplaceAll(content, action.OldValue, action.NewValue), true

	case types.ActionWaitAdjustment, types.ActionAssertionUpdate:
		if !strings.Contains(content, action.OldValue) {
			return content, false
		}
		return strings.Replace(content, action.OldValue, action.NewValue, 1), true

	case types.ActionTimingFix:
		return a.insertWait(content, action)

	default:
		return content, false
	}
}

// insertWait places a framework-appropriate wait statement before the line
// containing the anchor (the action's old value). An action with no anchor,
// a missing anchor or a non-numeric duration is skipped.
func (a *Applier) insertWait(content string, action *types.HealingAction) (string, bool) {
	ms, err := strconv.Atoi(strings.TrimSpace(action.NewValue))
	if err != nil || ms <= 0 {
		return content, false
	}
	if action.OldValue == "" {
		return content, false
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if !strings.Contains(line, action.OldValue) {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		stmt := indent + a.waitStatement(ms)
		lines = append(lines[:i], append([]string{stmt}, lines[i:]...)...)
		return strings.Join(lines, "\n"), true
	}
	return content, false
}

func (a *Applier) waitStatement(ms int) string {
	switch a.framework {
	case config.FrameworkCypress:
		return fmt.Sprintf("cy.wait(%d);", ms)
	case config.FrameworkPlaywright:
		return fmt.Sprintf("await page.waitForTimeout(%d);", ms)
	case config.FrameworkPuppeteer:
		return fmt.Sprintf("await new Promise((r) => setTimeout(r, %d));", ms)
	default:
		return fmt.Sprintf("- wait: %d", ms)
	}
}
