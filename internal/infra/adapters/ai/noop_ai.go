package ai

import (
	"context"
	"time"

	"sql-advisor/internal/domain"
	"sql-advisor/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAIAdapter)(nil)

// NoopAIAdapter implements adapter.AIServiceAdapter for local/dev mode.
// It returns canned advice instead of calling a real provider.
type NoopAIAdapter struct{}

func NewNoopAIAdapter() *NoopAIAdapter {
	return &NoopAIAdapter{}
}

func (a *NoopAIAdapter) pause(ctx context.Context) error {
	select {
	case <-time.After(100 * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *NoopAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	if err := a.pause(ctx); err != nil {
		return nil, err
	}
	return []string{"noop-ai-model"}, nil
}

func (a *NoopAIAdapter) GetModelInfo(model string) (adapter.ModelInfo, error) {
	return adapter.ModelInfo{
		Name:        "noop-ai-model",
		Description: "Noop AI model for testing",
		MaxTokens:   1024,
		Supports:    []string{"text"},
	}, nil
}

func (a *NoopAIAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	n := 0
	for _, m := range messages {
		n += len(m.Content) / 4
	}
	return n, nil
}

func (a *NoopAIAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	if err := a.pause(ctx); err != nil {
		return "", err
	}
	return "<optimized_query>SELECT 1</optimized_query><explanation>noop advice</explanation>", nil
}

func (a *NoopAIAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	text, err := a.Chat(ctx, model, messages)
	return text, adapter.Usage{}, err
}

func (a *NoopAIAdapter) ChatWithTools(ctx context.Context, model string, messages []adapter.Message, tools []adapter.Tool) (adapter.ToolResponse, error) {
	return adapter.ToolResponse{}, domain.ErrToolsUnsupported
}
