package audit

import (
	"context"
	"log/slog"
	"time"
)

// Event is a single audit record. Events are logged structurally and,
// when a sink is attached, forwarded to the provider activity feed.
type Event struct {
	Time       time.Time `json:"time"`
	Domain     string    `json:"domain"`
	TenantID   string    `json:"tenantId,omitempty"`
	UserID     string    `json:"userId,omitempty"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resourceId,omitempty"`
	Status     string    `json:"status"`
	Details    string    `json:"details,omitempty"`
}

// Sink receives audit events, e.g. the Redis-backed activity feed.
type Sink interface {
	Publish(ctx context.Context, e Event)
}

type Logger struct {
	logger *slog.Logger
	sink   Sink
}

// NewLogger creates an audit logger. sink may be nil.
func NewLogger(logger *slog.Logger, sink Sink) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger, sink: sink}
}

func (al *Logger) LogAction(ctx context.Context, domain, tenantID, userID, action, resource, resourceID, status, details string) {
	e := Event{
		Time:       time.Now(),
		Domain:     domain,
		TenantID:   tenantID,
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Status:     status,
		Details:    details,
	}

	al.logger.Info("audit",
		slog.String("domain", e.Domain),
		slog.String("action", e.Action),
		slog.String("resource", e.Resource),
		slog.String("resource_id", e.ResourceID),
		slog.String("tenant_id", e.TenantID),
		slog.String("user_id", e.UserID),
		slog.String("status", e.Status),
		slog.String("details", e.Details),
	)

	if al.sink != nil {
		al.sink.Publish(ctx, e)
	}
}

func (al *Logger) LogLogin(ctx context.Context, domain, tenantID, userID, status string) {
	al.LogAction(ctx, domain, tenantID, userID, "login", "session", "", status, "")
}

func (al *Logger) LogBulkGrades(ctx context.Context, tenantID, userID, classID string, saved, failed int) {
	status := "succeeded"
	if failed > 0 && saved > 0 {
		status = "partially_failed"
	} else if failed > 0 {
		status = "failed"
	}
	al.LogAction(ctx, "school", tenantID, userID, "bulk_grade_entry", "grade", classID, status, "")
}

func (al *Logger) LogDenied(ctx context.Context, domain, tenantID, userID, reason string) {
	al.LogAction(ctx, domain, tenantID, userID, "access_denied", "api", "", "denied", reason)
}
