package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/classtrack/internal/observability/metrics"
	"github.com/yourorg/classtrack/internal/service"
)

// SessionSweeper periodically removes stale session records so revoked
// or never-expiring sessions cannot linger in Redis.
type SessionSweeper struct {
	sessions *service.SessionStore
	logger   *slog.Logger
	interval time.Duration
}

// NewSessionSweeper creates a new session sweeper
func NewSessionSweeper(sessions *service.SessionStore, logger *slog.Logger, interval time.Duration) *SessionSweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionSweeper{sessions: sessions, logger: logger, interval: interval}
}

// Start begins the sweep loop. Runs until the context is cancelled.
func (w *SessionSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("session sweeper started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SessionSweeper) sweep(ctx context.Context) {
	removed, err := w.sessions.Sweep(ctx)
	if err != nil {
		w.logger.Error("session sweep failed", slog.String("error", err.Error()))
		metrics.ObserveSessionSweep("error")
		return
	}
	metrics.ObserveSessionSweep("success")
	if removed > 0 {
		w.logger.Info("swept stale sessions", slog.Int("removed", removed))
	}
}
