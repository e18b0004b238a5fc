package portfolio_contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nazarhussain/portfolio-contact/internal/ratestore"
)

// Maintainer prunes the rate-limit table and rotates stale logs on a fixed
// interval, off the request path.
type Maintainer struct {
	store        ratestore.Store
	journal      *Journal
	retention    time.Duration
	logRetention time.Duration
	interval     time.Duration
	logger       *slog.Logger
}

func NewMaintainer(c *Config, store ratestore.Store, journal *Journal, logger *slog.Logger) *Maintainer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Maintainer{
		store:        store,
		journal:      journal,
		retention:    c.RateLimitRetention,
		logRetention: c.LogRetention,
		interval:     c.MaintenanceInterval,
		logger:       logger,
	}
}

// MaintenanceReport summarizes one RunOnce pass.
type MaintenanceReport struct {
	Pruned  int
	Rotated []string
}

// RunOnce prunes entries recorded before now-retention and rotates logs
// untouched for longer than the log retention.
func (m *Maintainer) RunOnce(ctx context.Context, now time.Time) (MaintenanceReport, error) {
	var rep MaintenanceReport
	var errs []error

	n, err := m.store.Prune(ctx, now.Add(-m.retention))
	if err != nil {
		errs = append(errs, fmt.Errorf("prune rate limits: %w", err))
	}
	rep.Pruned = n
	rateLimitPrunedTotal.Add(float64(n))

	if m.logRetention > 0 {
		rotated, err := m.journal.Rotate(now, m.logRetention)
		if err != nil {
			errs = append(errs, err)
		}
		rep.Rotated = rotated
		logRotationsTotal.Add(float64(len(rotated)))
	}
	return rep, errors.Join(errs...)
}

// Run calls RunOnce every interval until ctx is done.
func (m *Maintainer) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rep, err := m.RunOnce(ctx, now)
			if err != nil {
				m.logger.Error("maintenance failed", "err", err)
				continue
			}
			m.logger.Debug("maintenance done", "pruned", rep.Pruned, "rotated", len(rep.Rotated))
		}
	}
}
