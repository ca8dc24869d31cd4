package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sql-advisor/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIServiceAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.AIServiceAdapter using the Chat
// Completions API, including function tools for the suggestion loop.
type OpenAIAdapter struct {
	apiKey   string
	base     string // e.g., https://api.openai.com/v1
	model    string
	provider string
	client   *http.Client
}

func NewOpenAIAdapter(apiKey, model string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIAdapter{
		apiKey:   apiKey,
		base:     "https://api.openai.com/v1",
		model:    model,
		provider: "openai",
		client:   &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (o *OpenAIAdapter) Provider() string { return o.provider }

func (o *OpenAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{o.model}, nil
}

func (o *OpenAIAdapter) GetModelInfo(model string) (adapter.ModelInfo, error) {
	if model == "" {
		model = o.model
	}
	return adapter.ModelInfo{
		Name:        model,
		Description: "OpenAI Chat Completions model",
		MaxTokens:   0,
		Supports:    []string{"text", "tools"},
	}, nil
}

func (o *OpenAIAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	if model == "" {
		model = o.model
	}
	return countTokens(model, messages)
}

func (o *OpenAIAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	text, _, err := o.ChatWithUsage(ctx, model, messages)
	return text, err
}

func (o *OpenAIAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	resp, err := o.complete(ctx, model, messages, nil)
	if err != nil {
		return "", adapter.Usage{}, err
	}
	if resp.Content == "" {
		return "", resp.Usage, errors.New("no choice content")
	}
	return resp.Content, resp.Usage, nil
}

func (o *OpenAIAdapter) ChatWithTools(ctx context.Context, model string, messages []adapter.Message, tools []adapter.Tool) (adapter.ToolResponse, error) {
	return o.complete(ctx, model, messages, tools)
}

// ---- wire types (Chat Completions) ----

type wireFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function wireFunctionCall `json:"function"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
}

type wireTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

func (o *OpenAIAdapter) complete(ctx context.Context, model string, messages []adapter.Message, tools []adapter.Tool) (adapter.ToolResponse, error) {
	if model == "" {
		model = o.model
	}

	wireMsgs := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		wm := wireMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: wireFunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		wireMsgs = append(wireMsgs, wm)
	}

	reqBody := struct {
		Model      string        `json:"model"`
		Messages   []wireMessage `json:"messages"`
		Tools      []wireTool    `json:"tools,omitempty"`
		ToolChoice string        `json:"tool_choice,omitempty"`
	}{Model: model, Messages: wireMsgs}
	for _, t := range tools {
		var wt wireTool
		wt.Type = "function"
		wt.Function.Name = t.Name
		wt.Function.Description = t.Description
		wt.Function.Parameters = t.Parameters
		reqBody.Tools = append(reqBody.Tools, wt)
	}
	if len(tools) > 0 {
		reqBody.ToolChoice = "auto"
	}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return adapter.ToolResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return adapter.ToolResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return adapter.ToolResponse{}, fmt.Errorf("%s http %d", o.provider, resp.StatusCode)
	}

	var payload struct {
		Choices []struct {
			Message wireMessage `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return adapter.ToolResponse{}, err
	}
	if len(payload.Choices) == 0 {
		return adapter.ToolResponse{}, errors.New("no choices returned")
	}

	msg := payload.Choices[0].Message
	out := adapter.ToolResponse{
		Content: strings.TrimSpace(msg.Content),
		Usage: adapter.Usage{
			PromptTokens:     payload.Usage.PromptTokens,
			CompletionTokens: payload.Usage.CompletionTokens,
			TotalTokens:      payload.Usage.TotalTokens,
		},
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, adapter.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}
