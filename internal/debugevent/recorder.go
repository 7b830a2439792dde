package debugevent

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"github.com/telhawk-systems/debugconsole/internal/metrics"
	"github.com/telhawk-systems/debugconsole/internal/models"
)

const logPrefix = "[AdminDebug] "

// Params describes one event to record. EventType and Message are required;
// empty Severity and Source fall back to "info" and the recorder's default
// source.
type Params struct {
	EventType  string
	Message    string
	Severity   string
	Source     string
	User       Identity
	Request    Request
	Payload    map[string]interface{}
	SessionKey string
	// OccurredAt is an ISO 8601 date-time supplied by the caller.
	OccurredAt string
}

// Recorder persists debug events and mirrors each one to a structured logger.
type Recorder struct {
	store         Store
	logger        *slog.Logger
	clock         Clock
	notifier      Notifier
	defaultSource string
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(r *Recorder) {
		r.clock = c
	}
}

// WithNotifier registers a notifier called after each successful write.
func WithNotifier(n Notifier) Option {
	return func(r *Recorder) {
		r.notifier = n
	}
}

// WithDefaultSource changes the source used when Params.Source is empty.
func WithDefaultSource(source string) Option {
	return func(r *Recorder) {
		if source != "" {
			r.defaultSource = source
		}
	}
}

// NewRecorder creates a Recorder writing to store and logging to logger.
func NewRecorder(store Store, logger *slog.Logger, opts ...Option) *Recorder {
	r := &Recorder{
		store:         store,
		logger:        logger,
		clock:         NewSystemClock(time.UTC),
		defaultSource: models.SourceBackend,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Record normalizes p, persists it and emits one log record. Timestamp parse
// failures fall back to the current time; store errors are returned as-is
// and nothing is logged for them.
func (r *Recorder) Record(ctx context.Context, p Params) (*models.DebugEvent, error) {
	severity := p.Severity
	if severity == "" {
		severity = models.SeverityInfo
	}
	source := p.Source
	if source == "" {
		source = r.defaultSource
	}

	var user Identity
	if present(p.User) {
		user = p.User
	}
	sessionKey := p.SessionKey
	if present(p.Request) {
		if user == nil {
			if candidate := p.Request.Identity(); present(candidate) && candidate.IsAuthenticated() {
				user = candidate
			}
		}
		if sessionKey == "" {
			if sess := p.Request.Session(); present(sess) {
				sessionKey = sess.SessionKey()
			}
		}
	}

	payload := p.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}

	event := &models.DebugEvent{
		EventType:  truncate(p.EventType, models.MaxEventTypeLength),
		Message:    p.Message,
		Severity:   severity,
		Source:     source,
		SessionKey: truncate(sessionKey, models.MaxSessionKeyLength),
		Payload:    payload,
		OccurredAt: r.occurredAt(p.OccurredAt),
	}
	if user != nil && user.IsAuthenticated() {
		id, name := user.Subject(), user.DisplayName()
		event.UserID = &id
		event.Username = &name
	}

	start := time.Now()
	err := r.store.CreateEvent(ctx, event)
	metrics.StoreDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	levelLabel := "warning"
	if models.IsInformational(severity) {
		level = slog.LevelInfo
		levelLabel = "info"
	}
	userAttr := slog.Any("user", nil)
	if user != nil {
		userAttr = slog.String("user", user.DisplayName())
	}
	r.logger.LogAttrs(ctx, level, logPrefix+p.Message,
		slog.String("source", source),
		slog.String("severity", severity),
		slog.String("event_type", p.EventType),
		userAttr,
	)
	metrics.EventsRecorded.WithLabelValues(levelLabel).Inc()

	if r.notifier != nil {
		r.notifier.Notify(ctx, event)
	}

	return event, nil
}

// occurredAt applies the fallback-to-now policy for caller timestamps.
func (r *Recorder) occurredAt(raw string) time.Time {
	if raw == "" {
		return r.clock.Now()
	}
	t, err := ParseTimestamp(raw, r.clock.Location())
	if err != nil {
		metrics.TimestampFallbacks.Inc()
		return r.clock.Now()
	}
	return t
}

// present reports whether v holds a value, treating a typed nil pointer
// behind an interface as absent.
func present(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}

// truncate keeps at most n characters (code points) of s.
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
