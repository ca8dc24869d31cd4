package analyzer

import (
	"context"

	"sql-advisor/internal/domain/model"
)

// QueryResult is the outcome of one statement run against the customer
// database. Failed query executions come back as data, not as an error:
// the rendering carries the database's message so it can be fed back to
// the model, mirroring how a DBA would read it.
type QueryResult struct {
	// Rendered is the full textual rendering handed to the LLM.
	Rendered string
	// Preview is a short human-readable summary for the execution log.
	// For failed executions it is exactly model.FailurePreview.
	Preview string
	// Failed marks an execution error (syntax, missing relation, ...).
	Failed bool
}

// CustomerDB executes read-only SQL against the customer's database.
// Non-read-only statements are rejected with domain.ErrReadOnlyViolation.
// An error return means the statement never ran (cancellation, connection
// loss); per-statement failures are reported through QueryResult.Failed.
type CustomerDB interface {
	RunReadOnly(ctx context.Context, sql string) (QueryResult, error)
}

// QueryRecorder receives progress callbacks while a stage executes
// customer queries. One log entry is appended per executed query:
// QueryStarted appends it with an empty preview and marks the query as
// in flight, QueryFinished fills in the preview and clears the marker.
type QueryRecorder interface {
	QueryStarted(sql string)
	QueryFinished(sql, preview string)
}

// SchemaAnalyzer collects schema context relevant to a query. Sampling
// queries it runs are reported through the recorder like any other
// customer query.
type SchemaAnalyzer interface {
	Analyze(ctx context.Context, query string, rec QueryRecorder) (string, error)
}

// PlanRunner obtains the execution plan for a query, reporting every
// statement it runs through the recorder.
type PlanRunner interface {
	Run(ctx context.Context, query string, rec QueryRecorder) (string, error)
}

// SuggestionGenerator turns a query plus gathered context into
// explanatory optimization advice. It may run additional customer
// queries, all of which are reported through the recorder.
type SuggestionGenerator interface {
	Generate(ctx context.Context, query, schemaContext, planContext string, rec QueryRecorder) (string, error)
}

// Optimizer is the single-shot rewrite path: one query in, an optimized
// query plus explanation out. No session, no polling.
type Optimizer interface {
	Optimize(ctx context.Context, sql string) (model.OptimizeResult, error)
}
