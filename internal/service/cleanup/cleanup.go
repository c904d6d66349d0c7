package cleanup

import (
	"context"
	"time"

	"github.com/nkiryanov/wordvault/internal/logger"
)

const defaultSweepInterval = 3 * time.Minute

type staleDeleter interface {
	DeleteStale(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper purges expired and revoked refresh token rows on a fixed interval.
// It runs beside the request path, touches the durable store only, and a
// failed tick is logged and retried on the next one.
type Sweeper struct {
	interval time.Duration
	repo     staleDeleter
	logger   logger.Logger
}

func New(interval time.Duration, repo staleDeleter, l logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Sweeper{
		interval: interval,
		repo:     repo,
		logger:   l,
	}
}

// Run sweeps until the context is cancelled.
// The returned channel closes when the loop has fully stopped.
func (s *Sweeper) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	s.logger.Debug("Starting cleanup sweeper", "interval", s.interval)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("Cleanup sweeper stopped by context")
				return

			case <-ticker.C:
				deleted, err := s.repo.DeleteStale(ctx, time.Now())
				if err != nil {
					s.logger.Error("Failed to delete stale refresh tokens", "error", err)
					continue
				}

				s.logger.Info("Stale refresh tokens purged", "count", deleted)
			}
		}
	}()

	return idleStopped
}
