package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomengine/loom/pkg/loom/llm"
)

func TestMockClient_FixedResponse(t *testing.T) {
	mock := llm.NewMockClient("Hello, world!")

	resp, err := mock.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world!", resp.Content)
}

func TestMockClient_SequentialResponses(t *testing.T) {
	mock := llm.NewMockClient("").WithResponses("first", "second", "third")

	for _, want := range []string{"first", "second", "third", "third"} {
		resp, err := mock.Complete(context.Background(), llm.CompletionRequest{})
		require.NoError(t, err)
		assert.Equal(t, want, resp.Content)
	}
}

func TestMockClient_WithError(t *testing.T) {
	expectedErr := errors.New("provider down")
	mock := llm.NewMockClient("").WithError(expectedErr)

	_, err := mock.Complete(context.Background(), llm.CompletionRequest{})
	assert.ErrorIs(t, err, expectedErr)
}

func TestMockClient_CallTracking(t *testing.T) {
	mock := llm.NewMockClient("response")

	assert.Equal(t, 0, mock.CallCount())

	_, _ = mock.Complete(context.Background(), llm.CompletionRequest{Model: "a"})
	_, _ = mock.Complete(context.Background(), llm.CompletionRequest{Model: "b"})

	assert.Equal(t, 2, mock.CallCount())
}

func TestMockClient_LastCall(t *testing.T) {
	mock := llm.NewMockClient("response")

	_, ok := mock.LastCall()
	assert.False(t, ok)

	_, err := mock.Complete(context.Background(), llm.CompletionRequest{
		Model:        "claude-opus",
		SystemPrompt: "be kind",
	})
	require.NoError(t, err)

	last, ok := mock.LastCall()
	require.True(t, ok)
	assert.Equal(t, "claude-opus", last.Model)
	assert.Equal(t, "be kind", last.SystemPrompt)
}

func TestMockClient_CancelledContext(t *testing.T) {
	mock := llm.NewMockClient("response")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mock.Complete(ctx, llm.CompletionRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, mock.CallCount())
}
