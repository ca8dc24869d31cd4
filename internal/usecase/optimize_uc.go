package usecase

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"sql-advisor/internal/domain"
	"sql-advisor/internal/domain/model"
	"sql-advisor/internal/domain/ports/analyzer"
	"sql-advisor/internal/infra/logging"
)

// OptimizeUseCase is the synchronous single-shot rewrite path.
type OptimizeUseCase interface {
	Optimize(ctx context.Context, sql string) (model.OptimizeResult, error)
}

var _ OptimizeUseCase = (*optimizeUC)(nil)

type optimizeUC struct {
	opt analyzer.Optimizer
	log *zerolog.Logger
	dev bool
}

func NewOptimizeUseCase(opt analyzer.Optimizer, log *zerolog.Logger, dev bool) *optimizeUC {
	return &optimizeUC{opt: opt, log: log, dev: dev}
}

func (u *optimizeUC) Optimize(ctx context.Context, sql string) (model.OptimizeResult, error) {
	defer logging.TraceDuration(u.log, "OptimizeUC.Optimize")()
	if strings.TrimSpace(sql) == "" {
		return model.OptimizeResult{}, domain.ErrInvalidArgument
	}
	logging.With(ctx, u.log).Info().Str("sql", logging.Redact(sql, u.dev)).Msg("optimize request")
	return u.opt.Optimize(ctx, sql)
}
