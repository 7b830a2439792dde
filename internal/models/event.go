package models

import "time"

// DebugEvent is a persisted admin debug console event.
// ID is a store-assigned UUIDv7.
type DebugEvent struct {
	ID         string                 `json:"id"`
	EventType  string                 `json:"event_type"`
	Message    string                 `json:"message"`
	Severity   string                 `json:"severity"`
	Source     string                 `json:"source"`
	UserID     *string                `json:"user_id,omitempty"`
	Username   *string                `json:"user,omitempty"`
	SessionKey string                 `json:"session_key"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Well-known severities. Any other string is stored as-is.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Source tags used by the service itself.
const (
	SourceBackend  = "backend"
	SourceFrontend = "frontend"
)

// Column limits shared by the recorder and the schema.
const (
	MaxEventTypeLength  = 64
	MaxSessionKeyLength = 64
)

// IsInformational reports whether the severity maps to the info log level.
func IsInformational(severity string) bool {
	return severity == SeverityInfo || severity == SeveritySuccess
}

// AsMap returns the event as a plain map for API responses and forwarding.
// Absent users are reported as nil, times as RFC 3339 with nanoseconds.
func (e *DebugEvent) AsMap() map[string]interface{} {
	payload := e.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}

	var user, userID interface{}
	if e.UserID != nil {
		userID = *e.UserID
	}
	if e.Username != nil {
		user = *e.Username
	}

	return map[string]interface{}{
		"id":          e.ID,
		"event_type":  e.EventType,
		"message":     e.Message,
		"severity":    e.Severity,
		"source":      e.Source,
		"user":        user,
		"user_id":     userID,
		"session_key": e.SessionKey,
		"payload":     payload,
		"occurred_at": formatTime(e.OccurredAt),
		"created_at":  formatTime(e.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

// EventFilter narrows ListEvents results. Zero values mean "no filter".
type EventFilter struct {
	Severity  string
	Source    string
	EventType string
	Since     *time.Time
	Limit     int
	Offset    int
}
