package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sql-advisor/internal/domain"
	"sql-advisor/internal/domain/model"
)

var testLogger = zerolog.Nop()

// fakeAnalysisUC is an in-memory stand-in for the orchestrator.
type fakeAnalysisUC struct {
	sessions  map[string][]model.QueryJob
	nextID    string
	createErr error
}

func newFakeAnalysisUC() *fakeAnalysisUC {
	return &fakeAnalysisUC{sessions: map[string][]model.QueryJob{}, nextID: "sess-1"}
}

func (f *fakeAnalysisUC) CreateSession(_ context.Context, queries []string) (string, []model.QueryJob, error) {
	if f.createErr != nil {
		return "", nil, f.createErr
	}
	if len(queries) == 0 {
		return "", nil, domain.ErrEmptyBatch
	}
	jobs := make([]model.QueryJob, 0, len(queries))
	for i, q := range queries {
		jobs = append(jobs, *model.NewQueryJob("job-"+string(rune('a'+i)), q))
	}
	f.sessions[f.nextID] = jobs
	return f.nextID, jobs, nil
}

func (f *fakeAnalysisUC) Status(id string) ([]model.QueryJob, error) {
	jobs, ok := f.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return jobs, nil
}

func (f *fakeAnalysisUC) Delete(id string) error {
	if _, ok := f.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(f.sessions, id)
	return nil
}

type fakeOptimizeUC struct {
	res model.OptimizeResult
	err error
}

func (f *fakeOptimizeUC) Optimize(_ context.Context, sql string) (model.OptimizeResult, error) {
	if strings.TrimSpace(sql) == "" {
		return model.OptimizeResult{}, domain.ErrInvalidArgument
	}
	return f.res, f.err
}

func newTestServer(auc *fakeAnalysisUC, ouc *fakeOptimizeUC) http.Handler {
	if auc == nil {
		auc = newFakeAnalysisUC()
	}
	if ouc == nil {
		ouc = &fakeOptimizeUC{res: model.OptimizeResult{OptimizedQuery: "SELECT 1", Explanation: "fine as is"}}
	}
	s := NewServer(auc, ouc, nil, 0, time.Minute, false, &testLogger)
	return s.Router()
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateSessionEndpoint(t *testing.T) {
	h := newTestServer(nil, nil)

	rec := postJSON(t, h, "/api/v1/analysis/sessions", map[string]any{
		"queries": []string{"SELECT 1", "SELECT 2"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}

	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID == "" {
		t.Error("empty session_id")
	}
	if len(resp.Queries) != 2 {
		t.Fatalf("got %d queries, want 2", len(resp.Queries))
	}
	if resp.Queries[0].Status != model.JobStatusPending {
		t.Errorf("job status = %s, want pending", resp.Queries[0].Status)
	}
	if resp.Queries[0].ExecutedQueries == nil {
		t.Error("executed_queries should marshal as [] not null")
	}
}

func TestCreateSessionEmptyBatchIs400(t *testing.T) {
	h := newTestServer(nil, nil)
	rec := postJSON(t, h, "/api/v1/analysis/sessions", map[string]any{"queries": []string{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateSessionMalformedBodyIs400(t *testing.T) {
	h := newTestServer(nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/sessions", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateSessionCapacityIs429(t *testing.T) {
	auc := newFakeAnalysisUC()
	auc.createErr = domain.ErrCapacityExceeded
	h := newTestServer(auc, nil)
	rec := postJSON(t, h, "/api/v1/analysis/sessions", map[string]any{"queries": []string{"SELECT 1"}})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
}

func TestStatusAndDeleteLifecycle(t *testing.T) {
	h := newTestServer(nil, nil)

	rec := postJSON(t, h, "/api/v1/analysis/sessions", map[string]any{"queries": []string{"SELECT 1"}})
	var created sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	get := httptest.NewRequest(http.MethodGet, "/api/v1/analysis/sessions/"+created.SessionID, nil)
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, get)
	if rec2.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", rec2.Code)
	}

	del := httptest.NewRequest(http.MethodDelete, "/api/v1/analysis/sessions/"+created.SessionID, nil)
	rec3 := httptest.NewRecorder()
	h.ServeHTTP(rec3, del)
	if rec3.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want 204", rec3.Code)
	}

	// Both observing and re-deleting a removed session report 404.
	rec4 := httptest.NewRecorder()
	h.ServeHTTP(rec4, get)
	if rec4.Code != http.StatusNotFound {
		t.Fatalf("GET after delete = %d, want 404", rec4.Code)
	}
	rec5 := httptest.NewRecorder()
	h.ServeHTTP(rec5, del)
	if rec5.Code != http.StatusNotFound {
		t.Fatalf("second DELETE = %d, want 404", rec5.Code)
	}
}

func TestStatusUnknownSessionIs404(t *testing.T) {
	h := newTestServer(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis/sessions/does-not-exist", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestOptimizeEndpoint(t *testing.T) {
	h := newTestServer(nil, &fakeOptimizeUC{res: model.OptimizeResult{
		OptimizedQuery: "SELECT id FROM t WHERE id = 1",
		Explanation:    "Avoids the wildcard projection.",
	}})

	rec := postJSON(t, h, "/api/v1/optimize", map[string]any{"sql": "SELECT * FROM t"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	var res model.OptimizeResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.OptimizedQuery == "" || res.Explanation == "" {
		t.Errorf("incomplete result: %+v", res)
	}
}

func TestOptimizeEmptySQLIs400(t *testing.T) {
	h := newTestServer(nil, nil)
	rec := postJSON(t, h, "/api/v1/optimize", map[string]any{"sql": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestOptimizeProviderFailureIs502(t *testing.T) {
	h := newTestServer(nil, &fakeOptimizeUC{err: errors.New("upstream timeout")})
	rec := postJSON(t, h, "/api/v1/optimize", map[string]any{"sql": "SELECT 1"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
