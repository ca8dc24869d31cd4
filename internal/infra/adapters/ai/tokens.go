package ai

import (
	"github.com/pkoukk/tiktoken-go"

	"sql-advisor/internal/domain/ports/adapter"
)

// countTokens estimates prompt tokens for OpenAI-style models with
// tiktoken, falling back to cl100k_base for unknown model names.
func countTokens(model string, messages []adapter.Message) (int, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0, err
		}
	}
	total := 0
	for _, m := range messages {
		// 4 tokens of per-message overhead, per OpenAI's counting guide.
		total += 4 + len(enc.Encode(m.Content, nil, nil))
	}
	return total, nil
}
