package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/classtrack/internal/infrastructure/redis"
	"github.com/yourorg/classtrack/internal/observability/metrics"
)

// SessionStore keeps server-side session records in Redis so logout can
// revoke a token before its JWT expiry and /auth/me can verify liveness.
// Keys are session:<domain>:<jti> with the token TTL.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewSessionStore creates a session store
func NewSessionStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{client: client, ttl: ttl, logger: logger}
}

func sessionKey(domain, sessionID string) string {
	return fmt.Sprintf("session:%s:%s", domain, sessionID)
}

// Open records a new session
func (s *SessionStore) Open(ctx context.Context, domain, sessionID, userID string) error {
	if err := s.client.Set(ctx, sessionKey(domain, sessionID), userID, s.ttl); err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}
	metrics.SessionOpened(domain)
	return nil
}

// Active reports whether a session record is still live. Redis being
// unreachable counts as inactive: better to bounce a user to login than
// to honor a possibly revoked token.
func (s *SessionStore) Active(ctx context.Context, domain, sessionID string) bool {
	ok, err := s.client.Exists(ctx, sessionKey(domain, sessionID))
	if err != nil {
		s.logger.Error("session liveness check failed",
			slog.String("domain", domain),
			slog.String("error", err.Error()),
		)
		return false
	}
	return ok
}

// Revoke removes a session record, invalidating its token immediately
func (s *SessionStore) Revoke(ctx context.Context, domain, sessionID string) error {
	if err := s.client.Delete(ctx, sessionKey(domain, sessionID)); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	metrics.SessionClosed(domain)
	return nil
}

// Sweep drops session keys Redis already expired but whose gauge entries
// linger, and reports how many live records remain per domain. Called by
// the background worker.
func (s *SessionStore) Sweep(ctx context.Context) (int, error) {
	keys, err := s.client.Keys(ctx, "session:*")
	if err != nil {
		return 0, fmt.Errorf("failed to scan sessions: %w", err)
	}

	removed := 0
	for _, key := range keys {
		ttl, err := s.client.TTL(ctx, key)
		if err != nil {
			continue
		}
		// TTL of -1 means a record written without expiry (older server
		// versions); re-expire it rather than letting it live forever.
		if ttl == -1 {
			if err := s.client.Delete(ctx, key); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
