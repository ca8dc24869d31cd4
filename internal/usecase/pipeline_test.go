package usecase

import (
	"context"
	"testing"

	"sql-advisor/internal/domain"
	"sql-advisor/internal/domain/model"
	"sql-advisor/internal/domain/ports/analyzer"
)

// planFunc adapts a bare function to analyzer.PlanRunner.
type planFunc func(ctx context.Context, query string, rec analyzer.QueryRecorder) (string, error)

func (f planFunc) Run(ctx context.Context, query string, rec analyzer.QueryRecorder) (string, error) {
	return f(ctx, query, rec)
}

func TestRecorderAppendsAndFillsPreview(t *testing.T) {
	p := newJobPipeline("job-1", "SELECT 1", &testLogger)

	p.QueryStarted("SELECT * FROM pg_indexes")
	j := p.Snapshot()
	if j.CurrentCustomerQuery != "SELECT * FROM pg_indexes" {
		t.Errorf("current_customer_query = %q", j.CurrentCustomerQuery)
	}
	if len(j.ExecutedQueries) != 1 || j.ExecutedQueries[0].ResultPreview != "" {
		t.Fatalf("unexpected log after start: %+v", j.ExecutedQueries)
	}
	if j.ExecutedQueries[0].Timestamp.IsZero() {
		t.Error("entry timestamp not set")
	}

	p.QueryFinished("SELECT * FROM pg_indexes", "Returned 3 rows")
	j = p.Snapshot()
	if j.CurrentCustomerQuery != "" {
		t.Errorf("current_customer_query not cleared: %q", j.CurrentCustomerQuery)
	}
	if j.ExecutedQueries[0].ResultPreview != "Returned 3 rows" {
		t.Errorf("preview = %q", j.ExecutedQueries[0].ResultPreview)
	}
}

func TestSnapshotsAreImmutable(t *testing.T) {
	p := newJobPipeline("job-1", "SELECT 1", &testLogger)
	p.QueryStarted("SELECT a FROM b")

	before := p.Snapshot()
	p.QueryFinished("SELECT a FROM b", "Returned 1 rows")

	// The snapshot taken before the update must not see it.
	if before.ExecutedQueries[0].ResultPreview != "" {
		t.Error("earlier snapshot was mutated by a later update")
	}
}

func TestAdvanceNeverLowersProgress(t *testing.T) {
	p := newJobPipeline("job-1", "SELECT 1", &testLogger)
	p.advance(model.JobStatusRunningExplain, "Running EXPLAIN against the customer database")
	if got := p.Snapshot().ProgressPercentage; got != 25 {
		t.Fatalf("progress = %d, want 25", got)
	}
	// A stage floor below the current value leaves progress alone.
	p.advance(model.JobStatusAnalyzingSchema, "Analyzing schema")
	if got := p.Snapshot().ProgressPercentage; got != 25 {
		t.Errorf("progress = %d, want 25 (no regression)", got)
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	p := newJobPipeline("job-1", "SELECT 1", &testLogger)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := ""
	p.run(ctx, &fakeSchema{}, &fakePlan{}, &fakeSuggest{}, func(o string) { outcome = o })

	j := p.Snapshot()
	if j.Status != model.JobStatusError {
		t.Errorf("status = %s, want error", j.Status)
	}
	if j.Suggestions != domain.ErrCancelled.Error() {
		t.Errorf("suggestions = %q, want %q", j.Suggestions, domain.ErrCancelled.Error())
	}
	if outcome != "cancelled" {
		t.Errorf("outcome = %q, want cancelled", outcome)
	}
}

func TestRunPreservesLogOnMidStageCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cancellingPlan := planFunc(func(c context.Context, q string, rec analyzer.QueryRecorder) (string, error) {
		rec.QueryStarted("EXPLAIN " + q)
		cancel()
		return "", c.Err()
	})

	p := newJobPipeline("job-1", "SELECT 1", &testLogger)
	outcome := ""
	p.run(ctx, &fakeSchema{}, cancellingPlan, &fakeSuggest{}, func(o string) { outcome = o })

	j := p.Snapshot()
	if outcome != "cancelled" {
		t.Fatalf("outcome = %q, want cancelled", outcome)
	}
	if len(j.ExecutedQueries) != 1 {
		t.Errorf("executed log lost on cancellation: %+v", j.ExecutedQueries)
	}
	if j.ProgressPercentage != 100 || !j.Status.Terminal() {
		t.Errorf("job not settled: %d%% %s", j.ProgressPercentage, j.Status)
	}
}
