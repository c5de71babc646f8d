// Package sweeper runs retention trimming in the background.
package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"audittrail/internal/audittrail/models"
	"audittrail/pkg/requestcontext"
)

// DefaultInterval is how often the sweeper wakes up to check whether a trim is due.
const DefaultInterval = 10 * time.Minute

// Trimmer is the part of the audit trail service the sweeper drives.
type Trimmer interface {
	Settings(ctx context.Context) (*models.Settings, error)
	UpdateSettings(ctx context.Context, settings *models.Settings) error
	Trim(ctx context.Context, retention time.Duration) (int, error)
}

// Result describes one sweep.
type Result struct {
	Ran     bool
	Deleted int
}

// Sweeper wakes on an interval and trims when the trimming settings allow it.
type Sweeper struct {
	trimmer  Trimmer
	interval time.Duration
	logger   *slog.Logger
}

type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

func New(trimmer Trimmer, opts ...Option) *Sweeper {
	s := &Sweeper{
		trimmer:  trimmer,
		interval: DefaultInterval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps on every tick until ctx is cancelled. A failed sweep is logged
// and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "audit trail sweeper started", "interval", s.interval.String())
	for {
		select {
		case <-ticker.C:
			if _, err := s.RunAt(ctx, time.Now().UTC()); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.ErrorContext(ctx, "audit trail sweep failed", "error", err)
			}
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "audit trail sweeper stopped")
			return ctx.Err()
		}
	}
}

// RunAt performs one sweep as of now. It trims only when trimming is enabled
// and the minimum run interval has passed since the last run, then records
// the run time. Exported for testability; Run passes wall-clock time.
func (s *Sweeper) RunAt(ctx context.Context, now time.Time) (Result, error) {
	current, err := s.trimmer.Settings(ctx)
	if err != nil {
		return Result{}, err
	}
	if !current.TrimDue(now) {
		s.logger.DebugContext(ctx, "audit trail trim not due",
			"disabled", current.Trimming.Disabled,
		)
		return Result{}, nil
	}

	deleted, err := s.trimmer.Trim(requestcontext.WithTime(ctx, now), current.RetentionPeriod())
	if err != nil {
		return Result{Ran: true, Deleted: deleted}, err
	}

	// Settings may have changed while trimming.
	latest, err := s.trimmer.Settings(ctx)
	if err != nil {
		return Result{Ran: true, Deleted: deleted}, err
	}
	ranAt := now.UTC()
	latest.Trimming.LastRunUTC = &ranAt
	if err := s.trimmer.UpdateSettings(ctx, latest); err != nil {
		return Result{Ran: true, Deleted: deleted}, err
	}

	s.logger.InfoContext(ctx, "audit trail trimmed",
		"deleted", deleted,
		"retention_days", current.RetentionDays,
	)
	return Result{Ran: true, Deleted: deleted}, nil
}
