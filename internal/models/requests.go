package models

// RecordEventRequest is the body accepted by POST /api/v1/debug/events.
type RecordEventRequest struct {
	EventType  string                 `json:"event_type"`
	Message    string                 `json:"message"`
	Severity   string                 `json:"severity,omitempty"`
	Source     string                 `json:"source,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt string                 `json:"occurred_at,omitempty"`
}

// SessionResponse is returned when a console session is opened.
type SessionResponse struct {
	SessionKey string `json:"session_key"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	ExpiresIn  int    `json:"expires_in"`
}

// PurgeResponse reports the result of a retention purge.
type PurgeResponse struct {
	Deleted int64  `json:"deleted"`
	Before  string `json:"before"`
}
