package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"sql-advisor/internal/domain"
	"sql-advisor/internal/domain/model"
	"sql-advisor/internal/domain/ports/adapter"
	"sql-advisor/internal/domain/ports/analyzer"
)

var testLogger = zerolog.Nop()

// scriptedAI replays a fixed sequence of ChatWithTools responses.
type scriptedAI struct {
	turns      []adapter.ToolResponse
	i          int
	toolsErr   error // returned by ChatWithTools when set
	chatText   string
	chatCalls  int
	zeroUsage  bool // report no provider-side usage
	countCalls int
}

func (a *scriptedAI) ListModels(context.Context) ([]string, error) { return []string{"test"}, nil }
func (a *scriptedAI) GetModelInfo(string) (adapter.ModelInfo, error) {
	return adapter.ModelInfo{Name: "test"}, nil
}
func (a *scriptedAI) CountTokens(_ context.Context, _ string, msgs []adapter.Message) (int, error) {
	a.countCalls++
	return 8 * len(msgs), nil
}
func (a *scriptedAI) Chat(ctx context.Context, m string, msgs []adapter.Message) (string, error) {
	text, _, err := a.ChatWithUsage(ctx, m, msgs)
	return text, err
}
func (a *scriptedAI) ChatWithUsage(context.Context, string, []adapter.Message) (string, adapter.Usage, error) {
	a.chatCalls++
	if a.zeroUsage {
		return a.chatText, adapter.Usage{}, nil
	}
	return a.chatText, adapter.Usage{PromptTokens: 10, CompletionTokens: 5}, nil
}
func (a *scriptedAI) ChatWithTools(_ context.Context, _ string, _ []adapter.Message, _ []adapter.Tool) (adapter.ToolResponse, error) {
	if a.toolsErr != nil {
		return adapter.ToolResponse{}, a.toolsErr
	}
	if a.i >= len(a.turns) {
		return adapter.ToolResponse{}, errors.New("script exhausted")
	}
	t := a.turns[a.i]
	a.i++
	return t, nil
}

// memDB records every statement it is asked to run.
type memDB struct {
	ran    []string
	result analyzer.QueryResult
	err    error
}

func (d *memDB) RunReadOnly(_ context.Context, sql string) (analyzer.QueryResult, error) {
	d.ran = append(d.ran, sql)
	if d.err != nil {
		return analyzer.QueryResult{}, d.err
	}
	return d.result, nil
}

type logRecorder struct {
	entries []model.ExecutedQuery
}

func (r *logRecorder) QueryStarted(sql string) {
	r.entries = append(r.entries, model.ExecutedQuery{Query: sql})
}

func (r *logRecorder) QueryFinished(sql, preview string) {
	if n := len(r.entries); n > 0 && preview != "" {
		r.entries[n-1].ResultPreview = preview
	}
}

func TestGenerateToolLoop(t *testing.T) {
	ai := &scriptedAI{turns: []adapter.ToolResponse{
		{ToolCalls: []adapter.ToolCall{
			{ID: "c1", Name: "run_customer_query", Arguments: `{"query": "SELECT count(*) FROM orders"}`},
			{ID: "c2", Name: "run_customer_query", Arguments: `{"query": "SHOW search_path"}`},
		}},
		{Content: "Add an index on orders(customer_id)."},
	}}
	db := &memDB{result: analyzer.QueryResult{Rendered: `[{"count": 42}]`, Preview: "Returned 1 rows"}}
	rec := &logRecorder{}

	s := NewSuggester(ai, db, "test", "test-model", 5, &testLogger)
	out, err := s.Generate(context.Background(), "SELECT 1", "schema", "plan", rec)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "Add an index on orders(customer_id)." {
		t.Errorf("suggestions = %q", out)
	}
	if len(db.ran) != 2 || db.ran[0] != "SELECT count(*) FROM orders" || db.ran[1] != "SHOW search_path" {
		t.Errorf("tool queries = %v", db.ran)
	}
	if len(rec.entries) != 2 {
		t.Fatalf("recorded %d entries, want 2", len(rec.entries))
	}
	for i, e := range rec.entries {
		if e.ResultPreview != "Returned 1 rows" {
			t.Errorf("entry %d preview = %q", i, e.ResultPreview)
		}
	}
}

func TestGenerateExceedsToolRounds(t *testing.T) {
	// Every turn asks for another tool call; the loop must give up.
	loop := adapter.ToolResponse{ToolCalls: []adapter.ToolCall{
		{ID: "c", Name: "run_customer_query", Arguments: `{"query": "SELECT 1"}`},
	}}
	ai := &scriptedAI{turns: []adapter.ToolResponse{loop, loop, loop}}
	db := &memDB{result: analyzer.QueryResult{Rendered: "[]", Preview: "No data returned"}}

	s := NewSuggester(ai, db, "test", "test-model", 3, &testLogger)
	_, err := s.Generate(context.Background(), "SELECT 1", "", "", &logRecorder{})
	if err == nil || !strings.Contains(err.Error(), "tool rounds") {
		t.Fatalf("err = %v, want round-limit error", err)
	}
}

func TestGenerateFallsBackWithoutToolSupport(t *testing.T) {
	ai := &scriptedAI{
		toolsErr: domain.ErrToolsUnsupported,
		chatText: "Consider a covering index.",
	}
	s := NewSuggester(ai, &memDB{}, "test", "test-model", 5, &testLogger)
	out, err := s.Generate(context.Background(), "SELECT 1", "", "", &logRecorder{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "Consider a covering index." {
		t.Errorf("suggestions = %q", out)
	}
	if ai.chatCalls != 1 {
		t.Errorf("single-shot calls = %d, want 1", ai.chatCalls)
	}
	// The provider reported usage, so no local counting happens.
	if ai.countCalls != 0 {
		t.Errorf("CountTokens calls = %d, want 0", ai.countCalls)
	}
}

func TestLocalTokenCountWhenProviderReportsNone(t *testing.T) {
	ai := &scriptedAI{
		toolsErr:  domain.ErrToolsUnsupported,
		chatText:  "Consider a covering index.",
		zeroUsage: true,
	}
	s := NewSuggester(ai, &memDB{}, "test", "test-model", 5, &testLogger)
	if _, err := s.Generate(context.Background(), "SELECT 1", "", "", &logRecorder{}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ai.countCalls != 1 {
		t.Errorf("CountTokens calls = %d, want 1 (prompt-side fallback)", ai.countCalls)
	}
}

func TestRunToolTransportErrorMarksEntry(t *testing.T) {
	ai := &scriptedAI{turns: []adapter.ToolResponse{
		{ToolCalls: []adapter.ToolCall{{ID: "c1", Name: "run_customer_query", Arguments: `{"query": "SELECT 1"}`}}},
		{Content: "done"},
	}}
	db := &memDB{err: errors.New("pool exhausted")}
	rec := &logRecorder{}
	s := NewSuggester(ai, db, "test", "test-model", 5, &testLogger)

	if _, err := s.Generate(context.Background(), "SELECT 1", "", "", rec); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(rec.entries))
	}
	if rec.entries[0].ResultPreview != model.FailurePreview {
		t.Errorf("preview = %q, want %q", rec.entries[0].ResultPreview, model.FailurePreview)
	}
}

func TestRunToolBadArguments(t *testing.T) {
	ai := &scriptedAI{turns: []adapter.ToolResponse{
		{ToolCalls: []adapter.ToolCall{{ID: "c1", Name: "run_customer_query", Arguments: "{broken"}}},
		{Content: "done"},
	}}
	db := &memDB{}
	s := NewSuggester(ai, db, "test", "test-model", 5, &testLogger)
	if _, err := s.Generate(context.Background(), "SELECT 1", "", "", &logRecorder{}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(db.ran) != 0 {
		t.Errorf("malformed args still reached the database: %v", db.ran)
	}
}

func TestOptimizeExtractsTaggedSections(t *testing.T) {
	ai := &scriptedAI{chatText: "preamble\n<optimized_query>\nSELECT id FROM t\n</optimized_query>\n" +
		"<EXPLANATION>Dropped the wildcard.</EXPLANATION>\ntrailer"}
	s := NewSuggester(ai, &memDB{}, "test", "test-model", 5, &testLogger)

	res, err := s.Optimize(context.Background(), "SELECT * FROM t")
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if res.OptimizedQuery != "SELECT id FROM t" {
		t.Errorf("optimized = %q", res.OptimizedQuery)
	}
	// Tag matching is case-insensitive.
	if res.Explanation != "Dropped the wildcard." {
		t.Errorf("explanation = %q", res.Explanation)
	}
}

func TestExtractOptimizeResultMissingTags(t *testing.T) {
	res := ExtractOptimizeResult("the model rambled and returned no tags")
	if res.OptimizedQuery != "" || res.Explanation != "" {
		t.Errorf("want empty fields, got %+v", res)
	}
}
