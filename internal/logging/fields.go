package logging

import "log/slog"

// Common field names.
const (
	FieldService    = "service"
	FieldRequestID  = "request_id"
	FieldUserID     = "user_id"
	FieldUsername   = "username"
	FieldSessionKey = "session_key"
	FieldEventID    = "event_id"
	FieldSubject    = "subject"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldDuration   = "duration_ms"
	FieldClientIP   = "client_ip"
	FieldError      = "error"
)

func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

func UserID(id string) slog.Attr {
	return slog.String(FieldUserID, id)
}

func Username(name string) slog.Attr {
	return slog.String(FieldUsername, name)
}

func SessionKey(key string) slog.Attr {
	return slog.String(FieldSessionKey, key)
}

func EventID(id string) slog.Attr {
	return slog.String(FieldEventID, id)
}

// Subject returns the NATS subject attribute.
func Subject(subject string) slog.Attr {
	return slog.String(FieldSubject, subject)
}

func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

func ClientIP(ip string) slog.Attr {
	return slog.String(FieldClientIP, ip)
}

// Error returns a slog attribute for an error. A nil error logs as "".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
