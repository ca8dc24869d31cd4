package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"sql-advisor/internal/domain"
	"sql-advisor/internal/domain/model"
	"sql-advisor/internal/domain/ports/analyzer"
	"sql-advisor/internal/infra/logging"
	"sql-advisor/internal/infra/worker"
)

// AnalysisUseCase is the session and job-pipeline orchestrator: it
// creates analysis sessions, runs the per-query pipelines concurrently
// and projects their state into poll-friendly snapshots.
type AnalysisUseCase interface {
	// CreateSession starts one pipeline per query, in input order, and
	// returns immediately with every job still pending.
	CreateSession(ctx context.Context, queries []string) (string, []model.QueryJob, error)
	// Status returns the current snapshot of every job in submission
	// order. Snapshots are per-job consistent, not cross-job atomic.
	Status(sessionID string) ([]model.QueryJob, error)
	// Delete cancels outstanding jobs and removes the session. A repeat
	// call reports domain.ErrSessionNotFound.
	Delete(sessionID string) error
}

var _ AnalysisUseCase = (*analysisUC)(nil)

type analysisUC struct {
	// baseCtx is the process lifetime: session pipelines outlive the
	// HTTP request that created them but not the application.
	baseCtx context.Context
	reg     *sessionRegistry
	group   *worker.Group
	schema  analyzer.SchemaAnalyzer
	plan    analyzer.PlanRunner
	suggest analyzer.SuggestionGenerator
	log     *zerolog.Logger
}

func NewAnalysisUseCase(
	baseCtx context.Context,
	maxSessions int,
	teardownGrace time.Duration,
	schema analyzer.SchemaAnalyzer,
	plan analyzer.PlanRunner,
	suggest analyzer.SuggestionGenerator,
	group *worker.Group,
	log *zerolog.Logger,
) *analysisUC {
	return &analysisUC{
		baseCtx: baseCtx,
		reg:     newSessionRegistry(maxSessions, teardownGrace, log),
		group:   group,
		schema:  schema,
		plan:    plan,
		suggest: suggest,
		log:     log,
	}
}

func (u *analysisUC) CreateSession(ctx context.Context, queries []string) (string, []model.QueryJob, error) {
	if len(queries) == 0 {
		return "", nil, domain.ErrEmptyBatch
	}

	defer logging.TraceDuration(u.log, "AnalysisUC.CreateSession")()

	sessionID := ulid.Make().String()
	log := logging.With(ctx, u.log).With().Str("session_id", sessionID).Logger()

	pipelines := make([]*jobPipeline, 0, len(queries))
	jobIDs := make([]string, 0, len(queries))
	for _, q := range queries {
		id := uuid.NewString()
		jobIDs = append(jobIDs, id)
		pipelines = append(pipelines, newJobPipeline(id, q, &log))
	}

	// Pipelines run on the process context, not the request context, so
	// the session id travels with them for stage logging.
	runCtx, cancel := context.WithCancel(logging.WithSessID(u.baseCtx, sessionID))
	s := &session{
		meta: model.AnalysisSession{
			ID:        sessionID,
			JobIDs:    jobIDs,
			CreatedAt: time.Now(),
		},
		jobs:   pipelines,
		cancel: cancel,
	}
	if err := u.reg.insert(s); err != nil {
		cancel()
		return "", nil, err
	}

	for _, p := range pipelines {
		p := p
		_ = u.group.Go(runCtx, "pipeline "+p.Snapshot().ID, func(ctx context.Context) error {
			p.run(ctx, u.schema, u.plan, u.suggest, func(string) {
				u.reg.jobDone(sessionID)
			})
			return nil
		})
	}

	log.Info().Int("jobs", len(pipelines)).Msg("analysis session created")
	return sessionID, snapshots(pipelines), nil
}

func (u *analysisUC) Status(sessionID string) ([]model.QueryJob, error) {
	s, ok := u.reg.get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return snapshots(s.jobs), nil
}

func (u *analysisUC) Delete(sessionID string) error {
	if !u.reg.remove(sessionID, "deleted") {
		return domain.ErrSessionNotFound
	}
	return nil
}

// ActiveSessions is used by health reporting.
func (u *analysisUC) ActiveSessions() int { return u.reg.len() }

func snapshots(pipelines []*jobPipeline) []model.QueryJob {
	out := make([]model.QueryJob, 0, len(pipelines))
	for _, p := range pipelines {
		out = append(out, *p.Snapshot())
	}
	return out
}
