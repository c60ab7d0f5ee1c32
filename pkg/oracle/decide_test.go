package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remedyqa/remedy/pkg/llm"
	"github.com/remedyqa/remedy/pkg/types"
)

func decideHistory() []*llm.Message {
	return []*llm.Message{
		llm.NewSystemMessage(agentSystemPrompt),
		llm.NewUserMessage("Task: log in with the demo account."),
	}
}

func TestDecideParsesFunctionCall(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{content: `{"action": "click", "coordinate": {"x": 512, "y": 330}}`},
	}}
	o := newTestOracle(t, provider, 0)

	decision, err := o.Decide(context.Background(), decideHistory())

	require.NoError(t, err)
	require.NotNil(t, decision.Call)
	assert.Equal(t, types.AgentActionClick, decision.Call.Action)
	require.NotNil(t, decision.Call.Coordinate)
	assert.Equal(t, 512, decision.Call.Coordinate.X)
	assert.False(t, decision.Terminal)
}

func TestDecideDetectsCompletionSignal(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{content: "The cart shows the item, so the task is done. TASK_COMPLETE"},
	}}
	o := newTestOracle(t, provider, 0)

	decision, err := o.Decide(context.Background(), decideHistory())

	require.NoError(t, err)
	assert.Nil(t, decision.Call)
	assert.True(t, decision.Terminal)
}

func TestDecideUnknownSchemaFallsBackToText(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{content: `{"tool": "browser.click", "args": {"selector": "#login"}}`},
	}}
	o := newTestOracle(t, provider, 0)

	decision, err := o.Decide(context.Background(), decideHistory())

	require.NoError(t, err)
	assert.Nil(t, decision.Call, "payload without an action key is not a function call")
	assert.False(t, decision.Terminal)
	assert.NotEmpty(t, decision.Text)
}

func TestDecideReturnsErrorAfterRetriesExhausted(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{{content: ""}}}
	o := newTestOracle(t, provider, 1)

	decision, err := o.Decide(context.Background(), decideHistory())

	require.Error(t, err)
	var oerr *types.OracleError
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, types.OracleErrEmpty, oerr.Kind)
	assert.Equal(t, 2, provider.calls)
	assert.NotNil(t, decision, "partial cost accounting survives the failure")
}
