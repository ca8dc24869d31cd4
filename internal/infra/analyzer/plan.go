package analyzer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"sql-advisor/internal/domain/model"
	"sql-advisor/internal/domain/ports/analyzer"
)

// failurePreview settles an aborted execution's log entry with the fixed
// failure marker. Cancellation is the exception: the job is being
// discarded, so the entry is left as recorded.
func failurePreview(ctx context.Context) string {
	if ctx.Err() != nil {
		return ""
	}
	return model.FailurePreview
}

var _ analyzer.PlanRunner = (*ExplainRunner)(nil)

// ExplainRunner obtains the actual execution plan for the query under
// analysis by running it through EXPLAIN ANALYZE on the customer side.
type ExplainRunner struct {
	db  analyzer.CustomerDB
	log *zerolog.Logger
}

func NewExplainRunner(db analyzer.CustomerDB, log *zerolog.Logger) *ExplainRunner {
	return &ExplainRunner{db: db, log: log}
}

func (r *ExplainRunner) Run(ctx context.Context, query string, rec analyzer.QueryRecorder) (string, error) {
	stmt := "EXPLAIN (ANALYZE, FORMAT JSON) " + query

	rec.QueryStarted(stmt)
	res, err := r.db.RunReadOnly(ctx, stmt)
	if err != nil {
		rec.QueryFinished(stmt, failurePreview(ctx))
		return "", err
	}
	rec.QueryFinished(stmt, res.Preview)
	if res.Failed {
		// The log entry with the failure preview is already recorded;
		// the job settles into error with the database's message.
		return "", fmt.Errorf("explain failed: %s", res.Rendered)
	}
	return res.Rendered, nil
}
