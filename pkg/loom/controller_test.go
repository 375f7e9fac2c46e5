package loom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomengine/loom/pkg/loom/checkpoint"
	"github.com/loomengine/loom/pkg/loom/errs"
)

func TestController_StartAndWait(t *testing.T) {
	ctrl := NewController()
	g := &Graph{Name: "quick", Nodes: []Node{node("a", nil)}}

	runID, err := ctrl.Start(testCtx(t), g,
		WithExecutor(KindCustomCode, trackingExecutor(&tracker{})),
		WithInput("hi"))
	require.NoError(t, err)
	assert.Equal(t, "test-run", runID)

	result, err := ctrl.Wait(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, result.Outcome)
	assert.Equal(t, "hi", result.Outputs["a.output"])
}

func TestController_DuplicateRunID(t *testing.T) {
	ctrl := NewController()
	release := make(chan struct{})
	slow := ExecutorFunc(func(ctx Context, n Node, inputs map[string]any) (Outputs, error) {
		select {
		case <-release:
			return Outputs{DefaultOutputPort: n.ID}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	g := &Graph{Name: "slow", Nodes: []Node{node("a", nil)}}

	runID, err := ctrl.Start(testCtx(t), g, WithExecutor(KindCustomCode, slow))
	require.NoError(t, err)

	_, err = ctrl.Start(testCtx(t), g, WithExecutor(KindCustomCode, slow))
	assert.ErrorIs(t, err, ErrRunActive)

	close(release)
	_, err = ctrl.Wait(context.Background(), runID)
	require.NoError(t, err)

	// A finished run's ID can be reused.
	_, err = ctrl.Start(testCtx(t), g, WithExecutor(KindCustomCode, slow))
	require.NoError(t, err)
}

func TestController_CancelDrainsRun(t *testing.T) {
	ctrl := NewController()
	started := make(chan struct{})
	block := ExecutorFunc(func(ctx Context, n Node, inputs map[string]any) (Outputs, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	g := &Graph{Name: "hang", Nodes: []Node{node("a", nil)}}

	runID, err := ctrl.Start(testCtx(t), g,
		WithExecutor(KindCustomCode, block),
		WithRetryConfig(errs.NoRetry))
	require.NoError(t, err)
	<-started

	result, err := ctrl.Cancel(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, result.Outcome)
	assert.Equal(t, StatusCancelled, result.Node("a").Status)
}

func TestController_Status(t *testing.T) {
	ctrl := NewController()
	release := make(chan struct{})
	slow := ExecutorFunc(func(ctx Context, n Node, inputs map[string]any) (Outputs, error) {
		<-release
		return Outputs{DefaultOutputPort: n.ID}, nil
	})
	g := &Graph{Name: "watched", Nodes: []Node{node("a", nil)}}

	runID, err := ctrl.Start(testCtx(t), g, WithExecutor(KindCustomCode, slow))
	require.NoError(t, err)

	st, err := ctrl.Status(runID)
	require.NoError(t, err)
	assert.True(t, st.Active)
	assert.Nil(t, st.Result)

	close(release)
	_, err = ctrl.Wait(context.Background(), runID)
	require.NoError(t, err)

	st, err = ctrl.Status(runID)
	require.NoError(t, err)
	assert.False(t, st.Active)
	require.NotNil(t, st.Result)
	assert.Equal(t, OutcomeSucceeded, st.Result.Outcome)

	_, err = ctrl.Status("nobody")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestController_WaitTimeout(t *testing.T) {
	ctrl := NewController()
	release := make(chan struct{})
	defer close(release)
	slow := ExecutorFunc(func(ctx Context, n Node, inputs map[string]any) (Outputs, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return Outputs{DefaultOutputPort: n.ID}, nil
	})
	g := &Graph{Name: "slow", Nodes: []Node{node("a", nil)}}

	runID, err := ctrl.Start(testCtx(t), g, WithExecutor(KindCustomCode, slow))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = ctrl.Wait(ctx, runID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestController_Forget(t *testing.T) {
	ctrl := NewController()
	g := &Graph{Name: "quick", Nodes: []Node{node("a", nil)}}

	runID, err := ctrl.Start(testCtx(t), g, WithExecutor(KindCustomCode, trackingExecutor(&tracker{})))
	require.NoError(t, err)
	_, err = ctrl.Wait(context.Background(), runID)
	require.NoError(t, err)

	assert.Equal(t, []string{runID}, ctrl.Runs())
	require.NoError(t, ctrl.Forget(runID))
	assert.Empty(t, ctrl.Runs())
	assert.ErrorIs(t, ctrl.Forget(runID), ErrRunNotFound)
}

func TestController_ResumeInBackground(t *testing.T) {
	ctrl := NewController()
	store := checkpoint.NewMemoryStore()
	g := &Graph{
		Name:  "recoverable",
		Nodes: []Node{node("a", nil), node("b", nil)},
		Edges: []Edge{edge("a", "b")},
	}

	tr1 := &tracker{}
	result, err := Run(testCtx(t), g,
		WithExecutor(KindCustomCode, failingExecutor(tr1, "b", errs.Permanent(errors.New("down"), "b"))),
		WithRetryConfig(errs.NoRetry),
		WithCheckpointStore(store))
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, result.Outcome)

	tr2 := &tracker{}
	runID, err := ctrl.Resume(NewContext(context.Background()), g, store, "test-run",
		WithExecutor(KindCustomCode, trackingExecutor(tr2)),
		WithCheckpointStore(store))
	require.NoError(t, err)
	assert.Equal(t, "test-run", runID)

	resumed, err := ctrl.Wait(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, resumed.Outcome)
	assert.Equal(t, []string{"b"}, tr2.ids())
}
