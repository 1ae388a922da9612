package checkpoint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsharp/agent-runtime/chatmsg"
	"github.com/tsharp/agent-runtime/checkpoint"
	"github.com/tsharp/agent-runtime/wfcontext"
)

func TestRoundTrip_PreservesHistoryBudgetAndRatio(t *testing.T) {
	ctx := wfcontext.New("wf1", 300, 3)
	ctx.AppendMessages(
		chatmsg.NewSystem("be helpful"),
		chatmsg.NewUser("hi"),
		chatmsg.NewAssistant("hello"),
	)

	raw, err := checkpoint.Marshal(ctx)
	require.NoError(t, err)

	snap, err := checkpoint.Unmarshal(raw)
	require.NoError(t, err)

	restored := checkpoint.Restore(snap)

	assert.Equal(t, ctx.History(), restored.History())
	assert.Equal(t, ctx.MaxContextTokens(), restored.MaxContextTokens())
	assert.Equal(t, ctx.Ratio(), restored.Ratio())
}

func TestUnmarshal_InvalidJSON(t *testing.T) {
	_, err := checkpoint.Unmarshal([]byte("not json"))
	assert.Error(t, err)
}
