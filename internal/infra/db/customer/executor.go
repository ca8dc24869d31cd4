package customer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"sql-advisor/internal/domain"
	"sql-advisor/internal/domain/model"
	"sql-advisor/internal/domain/ports/analyzer"
	"sql-advisor/internal/infra/metrics"
)

// Compile-time assurance this executor satisfies the port
var _ analyzer.CustomerDB = (*Executor)(nil)

// readonlyVerbs are the only statement heads the executor will run.
var readonlyVerbs = map[string]bool{
	"SELECT":  true,
	"WITH":    true,
	"EXPLAIN": true,
	"SHOW":    true,
	"VALUES":  true,
}

// Executor runs read-only statements against the customer database.
// Sessions are forced read-only and the search path is set to the
// customer's user schemas so the model can reference tables unqualified.
type Executor struct {
	pool     *pgxpool.Pool
	rowLimit int
	log      *zerolog.Logger

	pathOnce   sync.Once
	searchPath string
}

func NewExecutor(pool *pgxpool.Pool, rowLimit int, log *zerolog.Logger) *Executor {
	if rowLimit <= 0 {
		rowLimit = 100
	}
	return &Executor{pool: pool, rowLimit: rowLimit, log: log}
}

// GuardReadOnly rejects statements whose first keyword is not in the
// read-only allowlist.
func GuardReadOnly(sql string) error {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return domain.ErrInvalidArgument
	}
	if !readonlyVerbs[strings.ToUpper(fields[0])] {
		return domain.ErrReadOnlyViolation
	}
	return nil
}

func (e *Executor) RunReadOnly(ctx context.Context, sql string) (analyzer.QueryResult, error) {
	if err := GuardReadOnly(sql); err != nil {
		metrics.IncCustomerQuery("rejected")
		// Report the rejection back as data so the model can correct itself.
		return analyzer.QueryResult{
			Rendered: "ERROR: Only read-only queries are allowed",
			Preview:  model.FailurePreview,
			Failed:   true,
		}, nil
	}

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return analyzer.QueryResult{}, ctx.Err()
		}
		return analyzer.QueryResult{}, fmt.Errorf("acquire customer conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SET default_transaction_read_only = on"); err != nil {
		if ctx.Err() != nil {
			return analyzer.QueryResult{}, ctx.Err()
		}
		return analyzer.QueryResult{}, fmt.Errorf("set read-only: %w", err)
	}
	if sp := e.userSearchPath(ctx); sp != "" {
		// search_path is advisory; a failure here must not block the query.
		if _, err := conn.Exec(ctx, "SET search_path TO "+sp); err != nil {
			e.log.Debug().Err(err).Msg("set search_path failed")
		}
	}

	rows, err := conn.Query(ctx, sql)
	if err != nil {
		return e.failedResult(ctx, sql, err)
	}
	defer rows.Close()

	var rendered []map[string]any
	for rows.Next() && len(rendered) < e.rowLimit {
		vals, err := rows.Values()
		if err != nil {
			return e.failedResult(ctx, sql, err)
		}
		rec := make(map[string]any, len(vals))
		for i, fd := range rows.FieldDescriptions() {
			rec[string(fd.Name)] = normalizeValue(vals[i])
		}
		rendered = append(rendered, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return e.failedResult(ctx, sql, err)
	}

	metrics.IncCustomerQuery("ok")
	b, _ := json.Marshal(rendered)
	preview := "No data returned"
	if n := len(rendered); n > 0 {
		preview = fmt.Sprintf("Returned %d rows", n)
	}
	return analyzer.QueryResult{Rendered: string(b), Preview: preview}, nil
}

// failedResult converts a statement error into data for the model,
// unless the context was cancelled, in which case the pipeline must stop.
func (e *Executor) failedResult(ctx context.Context, sql string, err error) (analyzer.QueryResult, error) {
	if ctx.Err() != nil {
		return analyzer.QueryResult{}, ctx.Err()
	}
	metrics.IncCustomerQuery("failed")

	msg := err.Error()
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		msg = fmt.Sprintf("%s (SQLSTATE %s)", pgErr.Message, pgErr.Code)
	}
	e.log.Debug().Str("sql", sql).Str("db_error", msg).Msg("customer query failed")
	return analyzer.QueryResult{
		Rendered: "ERROR: " + msg,
		Preview:  model.FailurePreview,
		Failed:   true,
	}, nil
}

// userSearchPath discovers the customer's user schemas once and caches
// the resulting search path.
func (e *Executor) userSearchPath(ctx context.Context) string {
	e.pathOnce.Do(func() {
		rows, err := e.pool.Query(ctx, `
			SELECT schema_name
			FROM information_schema.schemata
			WHERE schema_name NOT IN ('information_schema', 'pg_catalog', 'pg_toast', 'pg_temp_1', 'pg_toast_temp_1')
			ORDER BY schema_name`)
		if err != nil {
			e.log.Warn().Err(err).Msg("schema discovery failed")
			return
		}
		defer rows.Close()
		var schemas []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return
			}
			schemas = append(schemas, pgxIdent(name))
		}
		if len(schemas) > 0 {
			e.searchPath = strings.Join(append(schemas, "public"), ", ")
		}
	})
	return e.searchPath
}

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// pgxIdent quotes a schema name for interpolation into SET search_path.
func pgxIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
