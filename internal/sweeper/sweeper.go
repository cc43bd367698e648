// Package sweeper reclaims flows nobody resumed in time. It is stateless
// between passes; every decision derives from persisted deadlines, so a
// missed or delayed pass only delays reclamation
package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/drover-io/drover/internal/engine"
	"github.com/drover-io/drover/pkg/log"
)

// Sweeper periodically invokes the engine's timeout scan. Overlapping
// sweeps and races with request handling are safe: the engine's transition
// preconditions make an already-handled flow a skip, not a conflict
type Sweeper struct {
	engine   *engine.Engine
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a sweeper that scans at the given interval
func New(eng *engine.Engine, interval time.Duration) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		engine:   eng,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins periodic sweeping until Stop is called
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.run()
	slog.Info("Timeout sweeper started",
		slog.Duration("interval", s.interval))
}

// Stop halts the sweep loop and waits for an in-flight pass to finish
func (s *Sweeper) Stop() {
	s.cancel()
	s.wg.Wait()
	slog.Info("Timeout sweeper stopped")
}

// SweepOnce runs a single pass immediately, outside the periodic cadence
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	return s.engine.ProcessTimeouts(ctx)
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.engine.ProcessTimeouts(s.ctx); err != nil {
				slog.Error("Timeout sweep failed",
					log.Error(err))
			}
		}
	}
}
