package mock_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsharp/agent-runtime/llm"
	"github.com/tsharp/agent-runtime/llm/mock"
)

func TestClient_ChatReplaysScriptInOrder(t *testing.T) {
	c := mock.NewClient(
		llm.Response{Content: "first"},
		llm.Response{Content: "second"},
	)

	r1, err := c.Chat(context.Background(), llm.Request{})
	require.NoError(t, err)
	assert.Equal(t, "first", r1.Content)

	r2, err := c.Chat(context.Background(), llm.Request{})
	require.NoError(t, err)
	assert.Equal(t, "second", r2.Content)
}

func TestClient_ExhaustedScriptReturnsError(t *testing.T) {
	c := mock.NewClient(llm.Response{Content: "only"})
	_, err := c.Chat(context.Background(), llm.Request{})
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), llm.Request{})
	assert.Error(t, err)
}

func TestClient_WithError(t *testing.T) {
	boom := assert.AnError
	c := mock.NewClient(llm.Response{Content: "unused"}).WithError(0, boom)
	_, err := c.Chat(context.Background(), llm.Request{})
	assert.ErrorIs(t, err, boom)
}

func TestClient_StreamEmitsContentAsSingleChunk(t *testing.T) {
	c := mock.NewClient(llm.Response{Content: "streamed"})
	var gotChunks []string
	resp, err := c.Stream(context.Background(), llm.Request{}, func(ctx context.Context, chunk llm.Chunk) {
		gotChunks = append(gotChunks, chunk.ContentDelta)
	})
	require.NoError(t, err)
	assert.Equal(t, "streamed", resp.Content)
	assert.Equal(t, []string{"streamed"}, gotChunks)
}

func TestClient_RecordsRequests(t *testing.T) {
	c := mock.NewClient(llm.Response{Content: "x"})
	_, _ = c.Chat(context.Background(), llm.Request{MaxTokens: intPtr(10)})
	reqs := c.Requests()
	require.Len(t, reqs, 1)
	require.NotNil(t, reqs[0].MaxTokens)
	assert.Equal(t, 10, *reqs[0].MaxTokens)
}

func intPtr(v int) *int { return &v }
