package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/telhawk-systems/debugconsole/internal/auth"
	"github.com/telhawk-systems/debugconsole/internal/debugevent"
	"github.com/telhawk-systems/debugconsole/internal/httputil"
	"github.com/telhawk-systems/debugconsole/internal/logging"
	"github.com/telhawk-systems/debugconsole/internal/models"
	"github.com/telhawk-systems/debugconsole/internal/repository"
	"github.com/telhawk-systems/debugconsole/internal/session"
)

const (
	resourceType = "debug_event"

	defaultPageSize = 50
	maxPageSize     = 500
)

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BrokerStatus reports whether the event forwarder's broker connection is up.
type BrokerStatus interface {
	IsConnected() bool
}

type Handler struct {
	recorder *debugevent.Recorder
	repo     repository.Repository
	sessions session.Store
	cookies  *session.Middleware
	broker   BrokerStatus
	logger   *slog.Logger
}

func NewHandler(recorder *debugevent.Recorder, repo repository.Repository, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		recorder: recorder,
		repo:     repo,
		logger:   logger,
	}
}

// WithSessions enables the session endpoints.
// WithBroker adds the forwarder's broker connection to health checks.
func (h *Handler) WithBroker(broker BrokerStatus) *Handler {
	h.broker = broker
	return h
}

func (h *Handler) WithSessions(store session.Store, cookies *session.Middleware) *Handler {
	h.sessions = store
	h.cookies = cookies
	return h
}

// requestContext adapts an HTTP request to debugevent.Request.
type requestContext struct {
	user *models.User
	sess *session.Session
}

func newRequestContext(r *http.Request) requestContext {
	return requestContext{
		user: auth.UserFromContext(r.Context()),
		sess: session.FromContext(r.Context()),
	}
}

func (rc requestContext) Identity() debugevent.Identity {
	if rc.user == nil {
		return nil
	}
	return rc.user
}

func (rc requestContext) Session() debugevent.Session {
	if rc.sess == nil {
		return nil
	}
	return rc.sess
}

// RecordEvent handles POST /api/v1/debug/events.
func (h *Handler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	var req models.RecordEventRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteJSONAPIValidationError(w, err.Error())
		return
	}
	if strings.TrimSpace(req.EventType) == "" {
		httputil.WriteJSONAPIValidationError(w, "event_type is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		httputil.WriteJSONAPIValidationError(w, "message is required")
		return
	}

	source := req.Source
	if source == "" {
		source = models.SourceFrontend
	}

	event, err := h.recorder.Record(r.Context(), debugevent.Params{
		EventType:  req.EventType,
		Message:    req.Message,
		Severity:   req.Severity,
		Source:     source,
		Request:    newRequestContext(r),
		Payload:    req.Payload,
		OccurredAt: req.OccurredAt,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to record debug event", logging.Error(err))
		httputil.WriteJSONAPIInternalError(w, "Failed to record event")
		return
	}

	httputil.WriteJSONAPIResource(w, http.StatusCreated, resourceType, event.ID, event.AsMap())
}

// ListEvents handles GET /api/v1/debug/events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pagination := httputil.ParsePagination(r, defaultPageSize, maxPageSize)

	filter := models.EventFilter{
		Severity:  q.Get("severity"),
		Source:    q.Get("source"),
		EventType: q.Get("event_type"),
		Limit:     pagination.Limit,
		Offset:    pagination.Offset(),
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteJSONAPIValidationError(w, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = &since
	}

	events, total, err := h.repo.ListEvents(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list debug events", logging.Error(err))
		httputil.WriteJSONAPIInternalError(w, "Failed to list events")
		return
	}

	items := slices.Collect(debugevent.Serialize(slices.Values(events)))
	pagination.Total = total
	httputil.WriteJSONAPICollection(w, http.StatusOK, resourceType, items, &pagination)
}

// GetEvent handles GET /api/v1/debug/events/{id}.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	event, err := h.repo.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			httputil.WriteJSONAPINotFoundError(w, resourceType, id)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to get debug event", logging.EventID(id), logging.Error(err))
		httputil.WriteJSONAPIInternalError(w, "Failed to get event")
		return
	}

	httputil.WriteJSONAPIResource(w, http.StatusOK, resourceType, event.ID, event.AsMap())
}

// PurgeEvents handles DELETE /api/v1/debug/events?before=. before is an
// RFC 3339 timestamp or a duration such as 720h counted back from now.
func (h *Handler) PurgeEvents(w http.ResponseWriter, r *http.Request) {
	before, err := parseCutoff(r.URL.Query().Get("before"), time.Now())
	if err != nil {
		httputil.WriteJSONAPIValidationError(w, err.Error())
		return
	}

	deleted, err := h.repo.PurgeEvents(r.Context(), before)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to purge debug events", logging.Error(err))
		httputil.WriteJSONAPIInternalError(w, "Failed to purge events")
		return
	}

	user := auth.UserFromContext(r.Context())
	h.logger.InfoContext(r.Context(), "purged debug events",
		slog.Int64("deleted", deleted),
		slog.Time("before", before),
		logging.Username(user.DisplayName()),
	)

	httputil.WriteJSON(w, http.StatusOK, models.PurgeResponse{
		Deleted: deleted,
		Before:  before.UTC().Format(time.RFC3339),
	})
}

func parseCutoff(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("before is required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return time.Time{}, errors.New("before must be an RFC 3339 timestamp or a positive duration")
	}
	return now.Add(-d), nil
}

// CreateSession handles POST /api/v1/sessions for an authenticated caller.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		httputil.WriteJSONAPIError(w, http.StatusServiceUnavailable, "sessions_disabled", "Sessions Disabled", "Session storage is not configured")
		return
	}

	user := auth.UserFromContext(r.Context())
	sess, err := h.sessions.Create(r.Context(), user)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create session", logging.UserID(user.Subject()), logging.Error(err))
		httputil.WriteJSONAPIInternalError(w, "Failed to create session")
		return
	}
	if h.cookies != nil {
		h.cookies.SetCookie(w, sess)
	}

	httputil.WriteJSON(w, http.StatusCreated, models.SessionResponse{
		SessionKey: sess.Key,
		UserID:     user.Subject(),
		Username:   user.DisplayName(),
		ExpiresIn:  int(h.sessions.TTL().Seconds()),
	})
}

// DeleteSession handles DELETE /api/v1/sessions.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		httputil.WriteJSONAPIError(w, http.StatusServiceUnavailable, "sessions_disabled", "Sessions Disabled", "Session storage is not configured")
		return
	}

	if sess := session.FromContext(r.Context()); sess != nil {
		if err := h.sessions.Delete(r.Context(), sess.Key); err != nil {
			h.logger.ErrorContext(r.Context(), "failed to delete session", logging.SessionKey(sess.Key), logging.Error(err))
			httputil.WriteJSONAPIInternalError(w, "Failed to delete session")
			return
		}
	}
	if h.cookies != nil {
		h.cookies.ClearCookie(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /healthz.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{"status": "ok"}

	if p, ok := h.repo.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "health check failed", logging.Error(err))
			status = http.StatusServiceUnavailable
			body = map[string]string{"status": "unavailable", "error": "database unreachable"}
		}
	}

	// Forwarding is best effort, so a lost broker only degrades the service.
	if h.broker != nil {
		body["nats"] = "connected"
		if !h.broker.IsConnected() {
			body["nats"] = "disconnected"
			if status == http.StatusOK {
				body["status"] = "degraded"
			}
		}
	}

	httputil.WriteJSON(w, status, body)
}
