package customer

import (
	"errors"
	"testing"

	"sql-advisor/internal/domain"
)

func TestGuardReadOnlyAllowlist(t *testing.T) {
	allowed := []string{
		"SELECT * FROM orders",
		"select 1",
		"  WITH cte AS (SELECT 1) SELECT * FROM cte",
		"EXPLAIN (ANALYZE, FORMAT JSON) SELECT 1",
		"explain SELECT count(*) FROM t",
		"SHOW search_path",
		"VALUES (1), (2)",
	}
	for _, sql := range allowed {
		if err := GuardReadOnly(sql); err != nil {
			t.Errorf("GuardReadOnly(%q) = %v, want nil", sql, err)
		}
	}

	rejected := []string{
		"INSERT INTO t VALUES (1)",
		"UPDATE t SET a = 1",
		"DELETE FROM t",
		"DROP TABLE t",
		"TRUNCATE t",
		"CREATE INDEX idx ON t (a)",
		"GRANT ALL ON t TO public",
	}
	for _, sql := range rejected {
		if err := GuardReadOnly(sql); !errors.Is(err, domain.ErrReadOnlyViolation) {
			t.Errorf("GuardReadOnly(%q) = %v, want ErrReadOnlyViolation", sql, err)
		}
	}

	if err := GuardReadOnly("   "); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("GuardReadOnly(blank) = %v, want ErrInvalidArgument", err)
	}
}

func TestPgxIdentQuoting(t *testing.T) {
	if got := pgxIdent("demo"); got != `"demo"` {
		t.Errorf("pgxIdent(demo) = %s", got)
	}
	if got := pgxIdent(`we"ird`); got != `"we""ird"` {
		t.Errorf("pgxIdent escaping = %s", got)
	}
}

func TestNormalizeValueBytes(t *testing.T) {
	if got := normalizeValue([]byte("json")); got != "json" {
		t.Errorf("normalizeValue([]byte) = %v", got)
	}
	if got := normalizeValue(42); got != 42 {
		t.Errorf("normalizeValue(int) = %v", got)
	}
}
