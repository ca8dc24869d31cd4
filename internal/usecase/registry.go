package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sql-advisor/internal/domain"
	"sql-advisor/internal/domain/model"
	"sql-advisor/internal/infra/metrics"
)

// session bundles the pipelines created for one batch, in submission
// order, together with the cancellation handle covering all of them.
type session struct {
	meta   model.AnalysisSession
	jobs   []*jobPipeline
	cancel context.CancelFunc

	remaining int         // non-terminal jobs; guarded by the registry lock
	teardown  *time.Timer // set once remaining hits zero
}

// sessionRegistry is the only process-wide shared structure: a
// lock-protected map from session id to session. Insert, lookup, removal
// and the teardown timers all synchronize on the one mutex.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
	capacity int
	grace    time.Duration
	log      *zerolog.Logger
}

func newSessionRegistry(capacity int, grace time.Duration, log *zerolog.Logger) *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[string]*session),
		capacity: capacity,
		grace:    grace,
		log:      log,
	}
}

func (r *sessionRegistry) insert(s *session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.capacity > 0 && len(r.sessions) >= r.capacity {
		return domain.ErrCapacityExceeded
	}
	r.sessions[s.meta.ID] = s
	s.remaining = len(s.jobs)
	metrics.IncSessionCreated()
	metrics.SetActiveSessions(len(r.sessions))
	if s.remaining == 0 {
		// A session with no live jobs is immediately eligible for teardown.
		r.scheduleTeardownLocked(s)
	}
	return nil
}

func (r *sessionRegistry) get(id string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// remove takes the session out of the map, cancels its jobs and stops
// any pending teardown timer. The second call for an id reports false.
func (r *sessionRegistry) remove(id, reason string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		metrics.IncSessionTornDown(reason)
		metrics.SetActiveSessions(len(r.sessions))
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	if s.teardown != nil {
		s.teardown.Stop()
	}
	s.cancel()
	r.log.Info().Str("session_id", id).Str("reason", reason).Msg("session removed")
	return true
}

// jobDone records one pipeline settling. Once every job in the session
// is terminal, removal is scheduled after the grace delay so one last
// poll can observe the final state.
func (r *sessionRegistry) jobDone(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	s.remaining--
	if s.remaining <= 0 && s.teardown == nil {
		r.scheduleTeardownLocked(s)
	}
}

func (r *sessionRegistry) scheduleTeardownLocked(s *session) {
	s.teardown = time.AfterFunc(r.grace, func() {
		r.remove(s.meta.ID, "expired")
	})
}

func (r *sessionRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
