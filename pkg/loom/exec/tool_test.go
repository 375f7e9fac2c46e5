package exec

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomengine/loom/pkg/loom"
	"github.com/loomengine/loom/pkg/loom/errs"
)

func TestToolExecutor_DispatchesByName(t *testing.T) {
	var gotInput any
	var gotParams map[string]any

	tools := NewToolRegistry()
	tools.Register(NewTool("web_search", func(ctx context.Context, input any, params map[string]any) (any, error) {
		gotInput = input
		gotParams = params
		return []string{"result one", "result two"}, nil
	}))
	ex := NewToolExecutor(tools)

	outs, err := ex.Execute(testCtx(t), testNode(loom.KindTool, map[string]any{
		"tool_name":       "web_search",
		"tool_parameters": map[string]any{"max_results": 2},
	}), map[string]any{loom.DefaultInputPort: "golang schedulers"})

	require.NoError(t, err)
	assert.Equal(t, []string{"result one", "result two"}, outs[loom.DefaultOutputPort])
	assert.Equal(t, "golang schedulers", gotInput)
	assert.Equal(t, map[string]any{"max_results": 2}, gotParams)
}

func TestToolExecutor_UnknownToolIsPermanent(t *testing.T) {
	ex := NewToolExecutor(NewToolRegistry())
	_, err := ex.Execute(testCtx(t), testNode(loom.KindTool, map[string]any{
		"tool_name": "nope",
	}), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope" not found`)
	assert.Equal(t, errs.CategoryPermanent, errs.Categorize(err))
}

func TestToolExecutor_MissingName(t *testing.T) {
	ex := NewToolExecutor(NewToolRegistry())
	_, err := ex.Execute(testCtx(t), testNode(loom.KindTool, nil), nil)
	require.Error(t, err)
	assert.Equal(t, errs.CategoryPermanent, errs.Categorize(err))
}

func TestToolExecutor_ToolErrorPassesThrough(t *testing.T) {
	boom := errors.New("upstream service 503")
	tools := NewToolRegistry()
	tools.Register(NewTool("flaky", func(ctx context.Context, input any, params map[string]any) (any, error) {
		return nil, errs.Transient(boom, "flaky")
	}))
	ex := NewToolExecutor(tools)

	_, err := ex.Execute(testCtx(t), testNode(loom.KindTool, map[string]any{
		"tool_name": "flaky",
	}), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, errs.CategoryTransient, errs.Categorize(err))
}

func TestToolRegistry_ReplaceAndNames(t *testing.T) {
	tools := NewToolRegistry()
	tools.Register(NewTool("calc", func(ctx context.Context, input any, params map[string]any) (any, error) {
		return 1, nil
	}))
	tools.Register(NewTool("calc", func(ctx context.Context, input any, params map[string]any) (any, error) {
		return 2, nil
	}))
	tools.Register(NewTool("fetch", func(ctx context.Context, input any, params map[string]any) (any, error) {
		return nil, nil
	}))

	assert.ElementsMatch(t, []string{"calc", "fetch"}, tools.Names())

	tool, ok := tools.Lookup("calc")
	require.True(t, ok)
	got, err := tool.Call(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}
