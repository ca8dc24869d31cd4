// File: internal/infra/worker/group.go
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// A small tracked-goroutine group used to launch pipeline executions.
// Unlike a queueing pool, Go never blocks or drops: every submitted task
// starts immediately, and Wait drains them all on shutdown.

type Task func(ctx context.Context) error

type Group struct {
	wg  sync.WaitGroup
	log *zerolog.Logger
}

func NewGroup(log *zerolog.Logger) *Group {
	return &Group{log: log}
}

func (g *Group) Go(ctx context.Context, name string, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := task(ctx); err != nil {
			g.log.Error().Err(err).Str("task", name).Msg("task error")
		}
	}()
	return nil
}

// Wait blocks until every launched task has returned. Callers cancel the
// shared context first, then Wait.
func (g *Group) Wait() {
	g.wg.Wait()
}
