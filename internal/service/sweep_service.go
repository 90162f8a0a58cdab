package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type sweepStore interface {
	SweepExpired(ctx context.Context, now time.Time, limit int) (int, error)
	SweepRetention(ctx context.Context, now time.Time, retention time.Duration, limit int) (int, error)
}

type sweepObserver interface {
	ObserveInvitesSwept(reason string, count int)
}

// SweepConfig sets the cadence and batch size of the retention sweep.
type SweepConfig struct {
	Interval        time.Duration
	BatchSize       int
	RetentionWindow time.Duration
}

// SweepService is the server-side enforcement of the two retention
// deadlines: expiry of never-decrypted invites and the post-decryption
// inactivity window. Clients only ever display countdowns; removal happens
// here regardless of whether any client comes back.
type SweepService struct {
	repo    sweepStore
	metrics sweepObserver
	logger  *zap.Logger
	cfg     SweepConfig
}

// NewSweepService constructs the sweep service.
func NewSweepService(repo sweepStore, metrics sweepObserver, logger *zap.Logger, cfg SweepConfig) *SweepService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.RetentionWindow <= 0 {
		cfg.RetentionWindow = 72 * time.Hour
	}
	return &SweepService{repo: repo, metrics: metrics, logger: logger, cfg: cfg}
}

// Start boots a goroutine that runs the sweep on a fixed interval until the
// context is cancelled. One immediate pass runs at startup so a long
// downtime does not extend retention.
func (s *SweepService) Start(ctx context.Context) {
	go func() {
		s.RunOnce(ctx)
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce executes a single sweep pass, draining both deadline classes in
// bounded batches so one pass cannot hold long transactions.
func (s *SweepService) RunOnce(ctx context.Context) {
	now := time.Now().UTC()

	expired := s.drain(ctx, "expired", func() (int, error) {
		return s.repo.SweepExpired(ctx, now, s.cfg.BatchSize)
	})
	retention := s.drain(ctx, "retention", func() (int, error) {
		return s.repo.SweepRetention(ctx, now, s.cfg.RetentionWindow, s.cfg.BatchSize)
	})

	if expired > 0 || retention > 0 {
		s.logger.Info("sweep pass completed",
			zap.Int("expired", expired),
			zap.Int("retention", retention))
	}
}

func (s *SweepService) drain(ctx context.Context, reason string, sweep func() (int, error)) int {
	total := 0
	for {
		if ctx.Err() != nil {
			return total
		}
		n, err := sweep()
		if err != nil {
			s.logger.Warn("sweep batch failed", zap.String("reason", reason), zap.Error(err))
			return total
		}
		total += n
		if n > 0 && s.metrics != nil {
			s.metrics.ObserveInvitesSwept(reason, n)
		}
		if n < s.cfg.BatchSize {
			return total
		}
	}
}
