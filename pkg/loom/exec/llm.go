package exec

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/loomengine/loom/pkg/loom"
	"github.com/loomengine/loom/pkg/loom/llm"
)

// LLMDeps are the collaborators for llm nodes.
type LLMDeps struct {
	Client llm.Client
}

// LLMExecutor runs llm-kind nodes against a model provider.
//
// Parameters: model (required), prompt (required unless supplied on the
// prompt input port), system_prompt, temperature, max_tokens, tools.
// The prompt may reference input ports with {port} placeholders.
type LLMExecutor struct {
	client llm.Client
}

// NewLLMExecutor creates an executor backed by the given provider.
func NewLLMExecutor(client llm.Client) *LLMExecutor {
	return &LLMExecutor{client: client}
}

// Execute implements loom.Executor.
func (e *LLMExecutor) Execute(ctx loom.Context, node loom.Node, inputs map[string]any) (loom.Outputs, error) {
	if e.client == nil {
		return nil, configError(node.ID, "no model provider configured")
	}

	model := node.Parameters.String("model", "")
	if model == "" {
		return nil, configError(node.ID, "no model specified for llm node")
	}
	prompt := stringArg(node, inputs, "prompt", "")
	if prompt == "" {
		return nil, configError(node.ID, "no prompt provided to llm node")
	}
	prompt = interpolate(prompt, inputs)

	req := llm.CompletionRequest{
		Model:        model,
		SystemPrompt: stringArg(node, inputs, "system_prompt", ""),
		Temperature:  node.Parameters.Float("temperature", 0.7),
		MaxTokens:    node.Parameters.Int("max_tokens", 0),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: prompt},
		},
	}

	if raw, ok := node.Parameters.Raw()["tools"]; ok {
		var tools []llm.Tool
		if err := mapstructure.Decode(raw, &tools); err != nil {
			return nil, configError(node.ID, "malformed tools parameter: %v", err)
		}
		req.Tools = tools
	}

	resp, err := e.client.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("llm node %s: %w", node.ID, err)
	}

	ctx.Logger().Debug("completion finished",
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
		"finish_reason", resp.FinishReason)

	outs := loom.Outputs{loom.DefaultOutputPort: resp.Content}
	if len(resp.ToolCalls) > 0 {
		outs["tool_calls"] = resp.ToolCalls
	}
	return outs, nil
}
