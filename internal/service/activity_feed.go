package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/yourorg/classtrack/internal/infrastructure/redis"
	"github.com/yourorg/classtrack/internal/reliability/circuitbreaker"
	"github.com/yourorg/classtrack/internal/security/audit"
)

const (
	activityKey    = "activity:events"
	activityMaxLen = 500
)

// ActivityFeed stores recent audit events in a capped Redis list that the
// provider console streams over websocket. Publishing sits behind a
// circuit breaker so a flapping Redis degrades the feed, not the request
// path that produced the event.
type ActivityFeed struct {
	client  *redis.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewActivityFeed creates an activity feed
func NewActivityFeed(client *redis.Client, logger *slog.Logger) *ActivityFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityFeed{
		client:  client,
		breaker: circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second),
		logger:  logger,
	}
}

// Publish implements audit.Sink
func (f *ActivityFeed) Publish(ctx context.Context, e audit.Event) {
	if !f.breaker.AllowRequest() {
		return
	}

	payload, err := json.Marshal(e)
	if err != nil {
		f.logger.Error("failed to encode activity event", slog.String("error", err.Error()))
		return
	}

	if err := f.client.PushCapped(ctx, activityKey, string(payload), activityMaxLen); err != nil {
		f.breaker.RecordFailure()
		f.logger.Warn("failed to publish activity event", slog.String("error", err.Error()))
		return
	}
	f.breaker.RecordSuccess()
}

// Recent returns up to n most recent events, newest first
func (f *ActivityFeed) Recent(ctx context.Context, n int) ([]audit.Event, error) {
	raw, err := f.client.Range(ctx, activityKey, 0, int64(n-1))
	if err != nil {
		return nil, err
	}

	events := make([]audit.Event, 0, len(raw))
	for _, item := range raw {
		var e audit.Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}
