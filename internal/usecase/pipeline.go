package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"sql-advisor/internal/domain"
	"sql-advisor/internal/domain/model"
	"sql-advisor/internal/domain/ports/analyzer"
	"sql-advisor/internal/infra/logging"
	"sql-advisor/internal/infra/metrics"
)

// jobPipeline owns one query's state machine. All mutation happens on
// the pipeline's own goroutine (single writer); status readers get the
// last published immutable snapshot. Updates are clone-mutate-swap so a
// concurrent poll never observes a half-written job.
type jobPipeline struct {
	snap atomic.Pointer[model.QueryJob]
	log  *zerolog.Logger
}

var _ analyzer.QueryRecorder = (*jobPipeline)(nil)

func newJobPipeline(id, query string, log *zerolog.Logger) *jobPipeline {
	p := &jobPipeline{log: log}
	p.snap.Store(model.NewQueryJob(id, query))
	return p
}

// Snapshot returns the last published state. The returned value is
// immutable; callers must not modify it.
func (p *jobPipeline) Snapshot() *model.QueryJob {
	return p.snap.Load()
}

// publish applies fn to a fresh clone and swaps it in. Only the
// pipeline's own goroutine may call it.
func (p *jobPipeline) publish(fn func(*model.QueryJob)) {
	next := p.snap.Load().Clone()
	fn(next)
	p.snap.Store(next)
}

// ---- analyzer.QueryRecorder ----

func (p *jobPipeline) QueryStarted(sql string) {
	p.publish(func(j *model.QueryJob) {
		j.CurrentCustomerQuery = sql
		j.ExecutedQueries = append(j.ExecutedQueries, model.ExecutedQuery{
			Query:     sql,
			Timestamp: time.Now(),
		})
	})
}

func (p *jobPipeline) QueryFinished(sql, preview string) {
	p.publish(func(j *model.QueryJob) {
		j.CurrentCustomerQuery = ""
		if n := len(j.ExecutedQueries); n > 0 && preview != "" {
			j.ExecutedQueries[n-1].ResultPreview = preview
		}
	})
}

// ---- state machine ----

func (p *jobPipeline) advance(status model.JobStatus, step string) {
	p.publish(func(j *model.QueryJob) {
		j.Status = status
		j.CurrentStep = step
		if floor := status.ProgressFloor(); floor > j.ProgressPercentage {
			j.ProgressPercentage = floor
		}
	})
}

func (p *jobPipeline) settle(status model.JobStatus, suggestions string) {
	p.publish(func(j *model.QueryJob) {
		j.Status = status
		j.CurrentStep = ""
		j.CurrentCustomerQuery = ""
		j.ProgressPercentage = 100
		j.Suggestions = suggestions
	})
}

// run drives the job through its stages in strict order. onFinish is
// called exactly once with the terminal outcome ("completed", "error" or
// "cancelled").
func (p *jobPipeline) run(
	ctx context.Context,
	schema analyzer.SchemaAnalyzer,
	plan analyzer.PlanRunner,
	suggest analyzer.SuggestionGenerator,
	onFinish func(outcome string),
) {
	job := p.Snapshot()
	ctx = logging.WithJobID(ctx, job.ID)
	log := logging.With(ctx, p.log)

	finish := func(outcome string) {
		metrics.IncJobFinished(outcome)
		onFinish(outcome)
	}
	cancelled := func() bool {
		if ctx.Err() == nil {
			return false
		}
		p.settle(model.JobStatusError, domain.ErrCancelled.Error())
		log.Info().Msg("job discarded on cancellation")
		finish("cancelled")
		return true
	}

	if cancelled() {
		return
	}
	p.advance(model.JobStatusAnalyzingSchema, "Analyzing schema")
	start := time.Now()
	schemaContext, err := schema.Analyze(ctx, job.Query, p)
	metrics.ObserveStage(string(model.JobStatusAnalyzingSchema), time.Since(start).Seconds())
	if cancelled() {
		return
	}
	if err != nil {
		p.settle(model.JobStatusError, "Schema analysis failed: "+err.Error())
		log.Warn().Err(err).Msg("schema analysis failed")
		finish("error")
		return
	}

	p.advance(model.JobStatusRunningExplain, "Running EXPLAIN against the customer database")
	start = time.Now()
	planContext, err := plan.Run(ctx, job.Query, p)
	metrics.ObserveStage(string(model.JobStatusRunningExplain), time.Since(start).Seconds())
	if cancelled() {
		return
	}
	if err != nil {
		p.settle(model.JobStatusError, "Plan execution failed: "+err.Error())
		log.Warn().Err(err).Msg("plan execution failed")
		finish("error")
		return
	}

	p.advance(model.JobStatusGeneratingSuggestions, "Generating optimization suggestions")
	start = time.Now()
	suggestions, err := suggest.Generate(ctx, job.Query, schemaContext, planContext, p)
	metrics.ObserveStage(string(model.JobStatusGeneratingSuggestions), time.Since(start).Seconds())
	if cancelled() {
		return
	}
	if err != nil {
		p.settle(model.JobStatusError, "Suggestion generation failed: "+err.Error())
		log.Warn().Err(err).Msg("suggestion generation failed")
		finish("error")
		return
	}

	p.settle(model.JobStatusCompleted, suggestions)
	log.Info().Msg("job completed")
	finish("completed")
}
