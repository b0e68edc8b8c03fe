package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/alfredjeanlab/convgraph/internal/graph"
)

// Snapshotter yields the graph to export. *graph.Store implements it.
type Snapshotter interface {
	Snapshot() graph.Snapshot
}

// Scheduler exports the graph to its destinations at a fixed interval.
type Scheduler struct {
	source       Snapshotter
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler. An interval of zero or less disables it.
func NewScheduler(src Snapshotter, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		source:       src,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
	}
}

// Enabled reports whether Start will export anything.
func (s *Scheduler) Enabled() bool {
	return s.interval > 0 && len(s.destinations) > 0
}

// Start begins periodic export. It exports once immediately, then on each
// tick. It does nothing when the scheduler is disabled.
func (s *Scheduler) Start() {
	if !s.Enabled() {
		s.logger.Debug("export: scheduler disabled")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current export (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.exportLogged(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.exportLogged(ctx)
		}
	}
}

func (s *Scheduler) exportLogged(ctx context.Context) {
	if err := s.ExportOnce(ctx); err != nil {
		s.logger.Error("export failed", "err", err)
	}
}

// ExportOnce renders the current graph and writes it to every destination.
// A failing destination does not stop the others; all failures are
// returned together.
func (s *Scheduler) ExportOnce(ctx context.Context) error {
	var buf bytes.Buffer
	if err := WriteGraphML(&buf, s.source.Snapshot()); err != nil {
		return err
	}
	data := buf.Bytes()

	var errs error
	for i, dest := range s.destinations {
		if err := dest.Write(ctx, data); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("destination %d: %w", i, err))
		}
	}
	if errs == nil {
		s.logger.Info("export completed", "destinations", len(s.destinations), "bytes", len(data))
	}
	return errs
}
