// Package analyzer holds the stage collaborator implementations: schema
// inspection, plan execution and LLM suggestion generation.
package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"sql-advisor/internal/domain/ports/analyzer"
)

var _ analyzer.SchemaAnalyzer = (*SchemaInspector)(nil)

// SchemaInspector gathers table, column and index metadata from the
// customer database so the model sees the real schema instead of
// guessing it from the query text.
type SchemaInspector struct {
	db  analyzer.CustomerDB
	log *zerolog.Logger
}

func NewSchemaInspector(db analyzer.CustomerDB, log *zerolog.Logger) *SchemaInspector {
	return &SchemaInspector{db: db, log: log}
}

const columnsQuery = `
SELECT table_schema, table_name, column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema NOT IN ('information_schema', 'pg_catalog')
ORDER BY table_schema, table_name, ordinal_position`

const indexesQuery = `
SELECT schemaname, tablename, indexname, indexdef
FROM pg_indexes
WHERE schemaname NOT IN ('information_schema', 'pg_catalog')
ORDER BY schemaname, tablename, indexname`

func (s *SchemaInspector) Analyze(ctx context.Context, query string, rec analyzer.QueryRecorder) (string, error) {
	columns, err := s.sample(ctx, columnsQuery, rec)
	if err != nil {
		return "", fmt.Errorf("collect columns: %w", err)
	}
	indexes, err := s.sample(ctx, indexesQuery, rec)
	if err != nil {
		return "", fmt.Errorf("collect indexes: %w", err)
	}

	var b strings.Builder
	b.WriteString("Columns:\n")
	b.WriteString(columns)
	b.WriteString("\nIndexes:\n")
	b.WriteString(indexes)
	return b.String(), nil
}

func (s *SchemaInspector) sample(ctx context.Context, sql string, rec analyzer.QueryRecorder) (string, error) {
	rec.QueryStarted(sql)
	res, err := s.db.RunReadOnly(ctx, sql)
	if err != nil {
		rec.QueryFinished(sql, failurePreview(ctx))
		return "", err
	}
	rec.QueryFinished(sql, res.Preview)
	if res.Failed {
		return "", fmt.Errorf("schema query failed: %s", res.Rendered)
	}
	return res.Rendered, nil
}
