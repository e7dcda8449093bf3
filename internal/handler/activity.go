package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yourorg/classtrack/internal/security"
	"github.com/yourorg/classtrack/internal/security/middleware"
	"github.com/yourorg/classtrack/internal/service"
)

const activityPollInterval = 3 * time.Second

// ActivityHandler streams recent audit events to the provider console
// over WebSocket. The middleware authenticated the connection via the
// token query parameter since browsers cannot set headers on websocket
// upgrades.
type ActivityHandler struct {
	feed           *service.ActivityFeed
	authz          *security.AuthorizationService
	allowedOrigins []string
	logger         *slog.Logger
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(feed *service.ActivityFeed, authz *security.AuthorizationService, allowedOrigins []string, logger *slog.Logger) *ActivityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityHandler{feed: feed, authz: authz, allowedOrigins: allowedOrigins, logger: logger}
}

// upgrader is initialized per-request to use instance's allowed origins
func (h *ActivityHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., non-browser clients)
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/activity
func (h *ActivityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}
	if !h.authz.ProviderRoleCan(security.Role(claims.Role), security.PermViewActivity) {
		http.Error(w, "insufficient permissions", http.StatusForbidden)
		return
	}

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	ctx := r.Context()

	// Snapshot first, then poll for anything newer.
	events, err := h.feed.Recent(ctx, 50)
	if err != nil {
		h.logger.Error("failed to load activity snapshot", slog.String("error", err.Error()))
		ws.WriteMessage(websocket.TextMessage, []byte(`{"error":"activity feed unavailable"}`))
		return
	}
	var lastSeen time.Time
	// Recent returns newest first; send oldest first so the console
	// appends in order.
	for i := len(events) - 1; i >= 0; i-- {
		payload, err := json.Marshal(events[i])
		if err != nil {
			continue
		}
		if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
		if events[i].Time.After(lastSeen) {
			lastSeen = events[i].Time
		}
	}

	ticker := time.NewTicker(activityPollInterval)
	defer ticker.Stop()
	ping := time.NewTicker(15 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		case <-ticker.C:
			events, err := h.feed.Recent(ctx, 50)
			if err != nil {
				h.logger.Warn("activity poll failed", slog.String("error", err.Error()))
				continue
			}
			for i := len(events) - 1; i >= 0; i-- {
				if !events[i].Time.After(lastSeen) {
					continue
				}
				payload, err := json.Marshal(events[i])
				if err != nil {
					continue
				}
				if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
						h.logger.Debug("activity websocket closed")
					}
					return
				}
				lastSeen = events[i].Time
			}
		}
	}
}

// Recent handles GET /provider/activity, the REST fallback for consoles
// that cannot hold a websocket open.
func (h *ActivityHandler) Recent(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	if !h.authz.ProviderRoleCan(security.Role(claims.Role), security.PermViewActivity) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}
	events, err := h.feed.Recent(r.Context(), 50)
	if err != nil {
		h.logger.Error("failed to load activity", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "activity feed unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}
