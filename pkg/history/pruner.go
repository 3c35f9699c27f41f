package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

const (
	defaultPruneInterval  = time.Hour
	defaultPruneRetention = 30 * 24 * time.Hour
)

// Pruner removes history entries past the service retention ceiling on a
// fixed interval. Per-user retention shorter than the ceiling is enforced
// at read time by the replay engine.
type Pruner struct {
	store     Store
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
}

// PrunerOption configures a Pruner.
type PrunerOption func(*Pruner)

// WithPruneInterval sets how often the pruner runs.
func WithPruneInterval(d time.Duration) PrunerOption {
	return func(p *Pruner) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithPruneRetention sets the retention ceiling.
func WithPruneRetention(d time.Duration) PrunerOption {
	return func(p *Pruner) {
		if d > 0 {
			p.retention = d
		}
	}
}

// WithPrunerLogger sets the pruner's logger.
func WithPrunerLogger(log *slog.Logger) PrunerOption {
	return func(p *Pruner) {
		if log != nil {
			p.logger = log
		}
	}
}

// NewPruner creates a history pruner.
func NewPruner(store Store, opts ...PrunerOption) (*Pruner, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	p := &Pruner{
		store:     store,
		interval:  defaultPruneInterval,
		retention: defaultPruneRetention,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run prunes on the configured interval until the context is canceled.
// Blocks; run it in its own goroutine.
func (p *Pruner) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	removed, err := p.store.Prune(ctx, time.Now().UTC().Add(-p.retention))
	if err != nil {
		p.logger.LogAttrs(ctx, slog.LevelError, "history prune failed",
			logger.Error(err),
		)
		return
	}
	if removed > 0 {
		p.logger.LogAttrs(ctx, slog.LevelInfo, "pruned history entries",
			slog.Int("removed", removed),
		)
	}
}
