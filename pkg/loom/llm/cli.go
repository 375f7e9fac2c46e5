package llm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// CLIClient implements Client by shelling out to a provider CLI binary
// (the claude CLI by default). The prompt travels over stdin so it never
// hits argv length limits or the process table.
type CLIClient struct {
	binary       string
	model        string
	workdir      string
	timeout      time.Duration
	allowedTools []string
}

// CLIOption configures a CLIClient.
type CLIOption func(*CLIClient)

// WithBinary sets the provider binary (default "claude").
func WithBinary(path string) CLIOption {
	return func(c *CLIClient) { c.binary = path }
}

// WithModel sets the default model, used when a request names none.
func WithModel(model string) CLIOption {
	return func(c *CLIClient) { c.model = model }
}

// WithWorkdir sets the working directory for provider commands.
func WithWorkdir(dir string) CLIOption {
	return func(c *CLIClient) { c.workdir = dir }
}

// WithTimeout sets the per-call timeout (default 5 minutes).
func WithTimeout(d time.Duration) CLIOption {
	return func(c *CLIClient) { c.timeout = d }
}

// WithAllowedTools sets the tools the provider may invoke.
func WithAllowedTools(tools []string) CLIOption {
	return func(c *CLIClient) { c.allowedTools = tools }
}

// NewCLIClient creates a CLI-backed client.
// Assumes the binary is on PATH unless overridden with WithBinary.
func NewCLIClient(opts ...CLIOption) *CLIClient {
	c := &CLIClient{
		binary:  "claude",
		timeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete implements Client.
func (c *CLIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = c.model
	}

	cmd := exec.CommandContext(ctx, c.binary, c.buildArgs(req, model)...)
	cmd.Dir = c.workdir
	cmd.Stdin = strings.NewReader(renderPrompt(req.Messages))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			// Timeouts are worth retrying, caller cancellation is not.
			return nil, NewError("complete", ctx.Err(), ctx.Err() == context.DeadlineExceeded)
		}
		errMsg := stderr.String()
		return nil, NewError("complete", fmt.Errorf("%w: %s", err, strings.TrimSpace(errMsg)), isRetryableMessage(errMsg))
	}

	return &CompletionResponse{
		Content:      strings.TrimSpace(stdout.String()),
		Model:        model,
		FinishReason: "stop",
		Duration:     time.Since(start),
	}, nil
}

// buildArgs constructs CLI arguments from a request. The prompt itself is
// delivered over stdin.
func (c *CLIClient) buildArgs(req CompletionRequest, model string) []string {
	args := []string{"--print"}

	if req.SystemPrompt != "" {
		args = append(args, "--system-prompt", req.SystemPrompt)
	}
	if model != "" {
		args = append(args, "--model", model)
	}
	if req.MaxTokens > 0 {
		args = append(args, "--max-tokens", strconv.Itoa(req.MaxTokens))
	}
	if req.Temperature > 0 {
		args = append(args, "--temperature", strconv.FormatFloat(req.Temperature, 'f', -1, 64))
	}
	for _, tool := range c.allowedTools {
		args = append(args, "--allowedTools", tool)
	}
	for _, tool := range req.Tools {
		args = append(args, "--allowedTools", tool.Name)
	}
	return args
}

// renderPrompt flattens a conversation into the single prompt the CLI
// expects, labeling turns once history is involved.
func renderPrompt(messages []Message) string {
	if len(messages) == 1 && messages[0].Role == RoleUser {
		return messages[0].Content
	}

	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			b.WriteString("User: ")
		case RoleAssistant:
			b.WriteString("Assistant: ")
		case RoleTool:
			b.WriteString("Tool (" + msg.Name + "): ")
		default:
			continue
		}
		b.WriteString(msg.Content)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

// isRetryableMessage checks if provider stderr indicates a transient error.
func isRetryableMessage(errMsg string) bool {
	errLower := strings.ToLower(errMsg)
	return strings.Contains(errLower, "rate limit") ||
		strings.Contains(errLower, "timeout") ||
		strings.Contains(errLower, "overloaded") ||
		strings.Contains(errLower, "503") ||
		strings.Contains(errLower, "529")
}
