package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/water-accounting-dashboard/internal/observability"
)

// Publisher receives every new snapshot, e.g. to forward records to Kafka.
type Publisher interface {
	Publish(ctx context.Context, ds *Dataset) error
}

// Pipeline owns the current snapshot and keeps it in sync with the input files.
type Pipeline struct {
	loader    *Loader
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	interval  time.Duration

	current     atomic.Pointer[Dataset]
	mu          sync.Mutex // serializes reloads
	fingerprint string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPublisher forwards each new snapshot to pub.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithClock overrides the clock driving the reload ticker and backoff.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// New creates a Pipeline that checks the input files every interval.
func New(loader *Loader, logger *slog.Logger, metrics *observability.Metrics, interval time.Duration, opts ...Option) *Pipeline {
	p := &Pipeline{
		loader:   loader,
		logger:   logger,
		metrics:  metrics,
		clock:    clockwork.NewRealClock(),
		interval: interval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot returns the current dataset, or nil before the first load.
func (p *Pipeline) Snapshot() *Dataset {
	return p.current.Load()
}

// CheckReadiness returns nil once a snapshot has been loaded,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.current.Load() == nil {
		return errors.New("dataset has not been loaded yet")
	}
	return nil
}

// Reload loads a new snapshot, swaps it in and publishes it. Only load
// failures are returned; a failed publish is logged and counted, and the
// snapshot is served regardless.
func (p *Pipeline) Reload(ctx context.Context) (*Dataset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloadLocked(ctx)
}

func (p *Pipeline) reloadLocked(ctx context.Context) (*Dataset, error) {
	start := p.clock.Now()
	fp := p.loader.fingerprint()

	ds, err := p.loader.Load(ctx)
	if err != nil {
		p.metrics.DatasetLoads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	p.current.Store(ds)
	p.fingerprint = fp
	p.record(ds, p.clock.Since(start))

	p.logger.Info("dataset loaded",
		"dataset_id", ds.ID,
		"records", len(ds.Records),
		"duration", p.clock.Since(start),
	)

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, ds); err != nil {
			p.metrics.PublishErrors.Inc()
			p.logger.Error("publish dataset failed", "dataset_id", ds.ID, "error", err)
			return ds, nil
		}
		p.metrics.RecordsPublished.Add(float64(len(ds.Records)))
	}
	return ds, nil
}

func (p *Pipeline) record(ds *Dataset, d time.Duration) {
	p.metrics.DatasetLoads.WithLabelValues("success").Inc()
	p.metrics.LoadDuration.Observe(d.Seconds())
	p.metrics.LastLoadSeconds.Set(float64(ds.LoadedAt.Unix()))
	for _, s := range ds.Sources {
		p.metrics.SourceRows.WithLabelValues(s.Name).Set(float64(s.Rows))
		if s.Status != StatusOK {
			p.metrics.SourceErrors.WithLabelValues(s.Name, string(s.Status)).Inc()
		}
	}
}

// changed reports whether any input file differs from the current snapshot.
func (p *Pipeline) changed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loader.fingerprint() != p.fingerprint
}

// Run loads the initial snapshot and then reloads whenever an input file
// changes, until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("reloader started", "interval", p.interval)
	p.metrics.ReloaderRunning.Set(1)
	defer p.metrics.ReloaderRunning.Set(0)

	if !p.reloadWithBackoff(ctx) {
		return nil
	}

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("reloader stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
		if !p.changed() {
			continue
		}
		p.logger.Info("input files changed, reloading")
		if !p.reloadWithBackoff(ctx) {
			return nil
		}
	}
}

// reloadWithBackoff retries Reload until the files load. Returns false if
// the loop should stop.
func (p *Pipeline) reloadWithBackoff(ctx context.Context) bool {
	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		_, err := p.Reload(ctx)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("reload failed", "error", err, "retry_in", backoff)
		if !p.sleep(ctx, backoff) {
			return false
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

func (p *Pipeline) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
