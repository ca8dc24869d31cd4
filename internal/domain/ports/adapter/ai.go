package adapter

import "context"

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system", "tool"
	Content string `json:"content"`
	// ToolCallID links a role=tool message back to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
	// ToolCalls carries the calls requested by an assistant turn so the
	// caller can replay the turn when feeding tool output back.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ModelInfo describes a model.
type ModelInfo struct {
	Name        string
	Description string
	MaxTokens   int
	Supports    []string
}

// Usage for a single chat call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Tool declares a function the model may call during a chat turn.
type Tool struct {
	Name        string
	Description string
	// Parameters is a JSON Schema object describing the arguments.
	Parameters map[string]any
}

// ToolCall is a function invocation requested by the model. Arguments is
// the raw JSON string as returned by the provider.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolResponse is one assistant turn that may either answer directly or
// request tool invocations that the caller must execute and feed back.
type ToolResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
}

// AIServiceAdapter is the port for LLM chat.
type AIServiceAdapter interface {
	ListModels(ctx context.Context) ([]string, error)
	GetModelInfo(model string) (ModelInfo, error)

	// CountTokens must return prompt tokens for the provided messages
	// (provider-specific counting; best-effort when exact isn't available).
	CountTokens(ctx context.Context, model string, messages []Message) (int, error)

	// Chat returns only the assistant text
	Chat(ctx context.Context, model string, messages []Message) (string, error)

	// ChatWithUsage returns assistant text + usage as reported by the provider.
	ChatWithUsage(ctx context.Context, model string, messages []Message) (string, Usage, error)

	// ChatWithTools runs one turn with function tools enabled. Adapters
	// without tool support return domain.ErrToolsUnsupported.
	ChatWithTools(ctx context.Context, model string, messages []Message, tools []Tool) (ToolResponse, error)
}
