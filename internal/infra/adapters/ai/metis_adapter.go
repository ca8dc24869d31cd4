package ai

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// NewMetisOpenAIAdapter targets Metis's OpenAI-compatible gateway.
// Base URL defaults to https://api.metisai.ir/openai/v1 (configurable).
// Docs: https://docs.metisai.ir/api/openai  (OpenAI-compatible wrapper)
// The wire protocol is identical to OpenAI's Chat Completions, tools
// included, so this reuses the OpenAI adapter with a different base.
func NewMetisOpenAIAdapter(apiKey, model, base string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("metis api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if base == "" {
		base = "https://api.metisai.ir/openai/v1"
	}
	return &OpenAIAdapter{
		apiKey:   apiKey,
		base:     strings.TrimRight(base, "/"),
		model:    model,
		provider: "metis",
		client:   &http.Client{Timeout: 120 * time.Second},
	}, nil
}
