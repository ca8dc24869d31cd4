package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sql-advisor/internal/domain"
	"sql-advisor/internal/domain/model"
	"sql-advisor/internal/domain/ports/adapter"
	"sql-advisor/internal/domain/ports/analyzer"
	"sql-advisor/internal/infra/metrics"
)

var (
	_ analyzer.SuggestionGenerator = (*Suggester)(nil)
	_ analyzer.Optimizer           = (*Suggester)(nil)
)

const suggestInstructions = "You are a senior database performance engineer. " +
	"Your job is to suggest performance optimizations for the user's SQL query. " +
	"Suggest query rewrites, index suggestions, hints, ANALYZE runs, etc. " +
	"You may call the function `run_customer_query` to execute read-only SQL " +
	"against the customer's database when helpful. Before answering, use " +
	"run_customer_query to gather information about the customer's database. " +
	"When you provide the response to the user, they should not have to run any " +
	"queries to confirm your suggestions. If you propose a rewrite, run the " +
	"rewritten query and the original query and compare their latency using " +
	"EXPLAIN (ANALYZE, FORMAT JSON). Both latencies should be included in your " +
	"response. Format your response in Markdown."

const optimizeSystemPrompt = "You are a senior database performance engineer.\n\n" +
	"Rewrite the user's SQL so it is functionally equivalent but more performant.\n\n" +
	"Return the result wrapped in exactly the following XML tags (and nothing else):\n\n" +
	"<optimized_query>\n...optimized SQL here...\n</optimized_query>\n" +
	"<explanation>\n...concise explanation of the changes here...\n</explanation>"

var runQueryTool = adapter.Tool{
	Name:        "run_customer_query",
	Description: "Execute a read-only SQL query against the customer's database.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "A SQL SELECT query.",
			},
		},
		"required": []string{"query"},
	},
}

// Suggester drives the LLM through a bounded tool-call loop to produce
// optimization advice, and serves the single-shot rewrite path.
type Suggester struct {
	ai        adapter.AIServiceAdapter
	db        analyzer.CustomerDB
	model     string
	provider  string
	maxRounds int
	log       *zerolog.Logger
}

func NewSuggester(ai adapter.AIServiceAdapter, db analyzer.CustomerDB, provider, model string, maxRounds int, log *zerolog.Logger) *Suggester {
	if maxRounds <= 0 {
		maxRounds = 12
	}
	return &Suggester{ai: ai, db: db, model: model, provider: provider, maxRounds: maxRounds, log: log}
}

func (s *Suggester) Generate(ctx context.Context, query, schemaContext, planContext string, rec analyzer.QueryRecorder) (string, error) {
	user := fmt.Sprintf("%s\n\nSchema context:\n%s\n\nExecution plan (EXPLAIN ANALYZE, JSON):\n%s",
		query, schemaContext, planContext)
	messages := []adapter.Message{
		{Role: "system", Content: suggestInstructions},
		{Role: "user", Content: user},
	}

	for round := 0; round < s.maxRounds; round++ {
		resp, err := s.chatWithTools(ctx, messages)
		if errors.Is(err, domain.ErrToolsUnsupported) {
			return s.singleShot(ctx, messages)
		}
		if err != nil {
			return "", fmt.Errorf("suggestion call: %w", err)
		}
		if len(resp.ToolCalls) == 0 {
			if resp.Content == "" {
				return "", errors.New("empty suggestion response")
			}
			return resp.Content, nil
		}

		// Replay the assistant turn, then execute every requested tool
		// call and feed the output back.
		messages = append(messages, adapter.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			out := s.runTool(ctx, call, rec)
			if err := ctx.Err(); err != nil {
				return "", err
			}
			messages = append(messages, adapter.Message{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    out,
			})
		}
	}
	return "", fmt.Errorf("suggestion loop exceeded %d tool rounds", s.maxRounds)
}

func (s *Suggester) runTool(ctx context.Context, call adapter.ToolCall, rec analyzer.QueryRecorder) string {
	if call.Name != "run_customer_query" {
		return "Unknown function: " + call.Name
	}
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		s.log.Error().Str("args", call.Arguments).Msg("could not parse tool-call args")
		return "Invalid arguments for tool " + call.Name
	}

	rec.QueryStarted(args.Query)
	res, err := s.db.RunReadOnly(ctx, args.Query)
	if err != nil {
		rec.QueryFinished(args.Query, failurePreview(ctx))
		return "ERROR: query aborted"
	}
	rec.QueryFinished(args.Query, res.Preview)
	return res.Rendered
}

// singleShot inlines everything into one prompt for adapters without
// tool support.
func (s *Suggester) singleShot(ctx context.Context, messages []adapter.Message) (string, error) {
	start := time.Now()
	text, usage, err := s.ai.ChatWithUsage(ctx, s.model, messages)
	s.observe(ctx, messages, usage, time.Since(start), err == nil)
	if err != nil {
		return "", fmt.Errorf("suggestion call: %w", err)
	}
	if text == "" {
		return "", errors.New("empty suggestion response")
	}
	return text, nil
}

func (s *Suggester) chatWithTools(ctx context.Context, messages []adapter.Message) (adapter.ToolResponse, error) {
	start := time.Now()
	resp, err := s.ai.ChatWithTools(ctx, s.model, messages, []adapter.Tool{runQueryTool})
	if !errors.Is(err, domain.ErrToolsUnsupported) {
		s.observe(ctx, messages, resp.Usage, time.Since(start), err == nil)
	}
	return resp, err
}

func (s *Suggester) observe(ctx context.Context, messages []adapter.Message, usage adapter.Usage, elapsed time.Duration, success bool) {
	if usage.PromptTokens == 0 && len(messages) > 0 {
		// Not every provider reports usage (and error paths report none);
		// count the prompt side locally so the token metrics stay populated.
		if n, err := s.ai.CountTokens(ctx, s.model, messages); err == nil {
			usage.PromptTokens = n
		}
	}
	metrics.ObserveAIUsage(s.provider, s.model,
		usage.PromptTokens, usage.CompletionTokens,
		int(elapsed/time.Millisecond), success)
}

var (
	optimizedRe   = regexp.MustCompile(`(?is)<optimized_query>(.*?)</optimized_query>`)
	explanationRe = regexp.MustCompile(`(?is)<explanation>(.*?)</explanation>`)
)

// Optimize is the single-shot rewrite: no session, no tool loop.
func (s *Suggester) Optimize(ctx context.Context, sql string) (model.OptimizeResult, error) {
	messages := []adapter.Message{
		{Role: "system", Content: optimizeSystemPrompt},
		{Role: "user", Content: sql},
	}
	start := time.Now()
	content, usage, err := s.ai.ChatWithUsage(ctx, s.model, messages)
	s.observe(ctx, messages, usage, time.Since(start), err == nil)
	if err != nil {
		return model.OptimizeResult{}, fmt.Errorf("optimize call: %w", err)
	}
	return ExtractOptimizeResult(content), nil
}

// ExtractOptimizeResult pulls the tagged sections out of the model's
// reply; missing tags yield empty fields rather than an error.
func ExtractOptimizeResult(content string) model.OptimizeResult {
	var out model.OptimizeResult
	if m := optimizedRe.FindStringSubmatch(content); m != nil {
		out.OptimizedQuery = strings.TrimSpace(m[1])
	}
	if m := explanationRe.FindStringSubmatch(content); m != nil {
		out.Explanation = strings.TrimSpace(m[1])
	}
	return out
}
