package debugevent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/telhawk-systems/debugconsole/internal/models"
)

// mockStore implements Store for testing
type mockStore struct {
	events    []*models.DebugEvent
	createErr error
}

func (m *mockStore) CreateEvent(ctx context.Context, event *models.DebugEvent) error {
	if m.createErr != nil {
		return m.createErr
	}
	event.ID = gofakeit.UUID()
	event.CreatedAt = time.Now().UTC()
	m.events = append(m.events, event)
	return nil
}

type mockNotifier struct {
	notified []*models.DebugEvent
}

func (m *mockNotifier) Notify(ctx context.Context, event *models.DebugEvent) {
	m.notified = append(m.notified, event)
}

type fixedClock struct {
	now time.Time
	loc *time.Location
}

func (c fixedClock) Now() time.Time           { return c.now }
func (c fixedClock) Location() *time.Location { return c.loc }

type fakeRequest struct {
	identity Identity
	session  Session
}

func (r fakeRequest) Identity() Identity { return r.identity }
func (r fakeRequest) Session() Session   { return r.session }

type fakeSession string

func (s fakeSession) SessionKey() string { return string(s) }

var testZone = time.FixedZone("UTC+05:30", 5*3600+30*60)

func newTestRecorder(t *testing.T, store Store, opts ...Option) (*Recorder, *bytes.Buffer, fixedClock) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	clock := fixedClock{
		now: time.Date(2024, 6, 1, 12, 30, 0, 0, testZone),
		loc: testZone,
	}
	opts = append([]Option{WithClock(clock)}, opts...)
	return NewRecorder(store, logger, opts...), buf, clock
}

// logLines decodes every JSON log record written to buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var lines []map[string]interface{}
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if raw == "" {
			continue
		}
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(raw), &line))
		lines = append(lines, line)
	}
	return lines
}

func authedUser(name string) *models.User {
	return &models.User{ID: gofakeit.UUID(), Username: name}
}

func TestRecorder_Record_Defaults(t *testing.T) {
	store := &mockStore{}
	rec, _, _ := newTestRecorder(t, store)

	event, err := rec.Record(context.Background(), Params{
		EventType: "page_load",
		Message:   "dashboard rendered",
	})
	require.NoError(t, err)
	require.Len(t, store.events, 1)

	assert.Same(t, store.events[0], event)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, models.SeverityInfo, event.Severity)
	assert.Equal(t, models.SourceBackend, event.Source)
	assert.Nil(t, event.UserID)
	assert.Nil(t, event.Username)
	assert.Equal(t, "", event.SessionKey)
	assert.NotNil(t, event.Payload)
	assert.Empty(t, event.Payload)
}

func TestRecorder_Record_DefaultSourceOption(t *testing.T) {
	store := &mockStore{}
	rec, _, _ := newTestRecorder(t, store, WithDefaultSource("worker"))

	event, err := rec.Record(context.Background(), Params{EventType: "tick", Message: "tick"})
	require.NoError(t, err)
	assert.Equal(t, "worker", event.Source)

	event, err = rec.Record(context.Background(), Params{EventType: "tick", Message: "tick", Source: "frontend"})
	require.NoError(t, err)
	assert.Equal(t, "frontend", event.Source)
}

func TestRecorder_Record_Truncation(t *testing.T) {
	store := &mockStore{}
	rec, _, _ := newTestRecorder(t, store)

	longType := strings.Repeat("e", 100)
	longKey := strings.Repeat("k", 80)

	event, err := rec.Record(context.Background(), Params{
		EventType:  longType,
		Message:    "long fields",
		SessionKey: longKey,
	})
	require.NoError(t, err)

	assert.Equal(t, longType[:64], event.EventType)
	assert.Equal(t, longKey[:64], event.SessionKey)
}

func TestRecorder_Record_TruncatesByCharacter(t *testing.T) {
	store := &mockStore{}
	rec, _, _ := newTestRecorder(t, store)

	event, err := rec.Record(context.Background(), Params{
		EventType: strings.Repeat("é", 70),
		Message:   "multibyte",
	})
	require.NoError(t, err)

	assert.Equal(t, 64, utf8.RuneCountInString(event.EventType))
	assert.True(t, utf8.ValidString(event.EventType))
}

func TestRecorder_Record_UserResolution(t *testing.T) {
	alice := authedUser("alice")
	bob := authedUser("bob")

	tests := []struct {
		name         string
		user         Identity
		request      Request
		wantUsername *string
	}{
		{
			name:         "explicit authenticated user",
			user:         alice,
			wantUsername: &alice.Username,
		},
		{
			name:         "explicit anonymous user is dropped",
			user:         models.AnonymousUser,
			wantUsername: nil,
		},
		{
			name:         "explicit user without id is dropped",
			user:         &models.User{Username: "ghost"},
			wantUsername: nil,
		},
		{
			name:         "request identity adopted when no user given",
			request:      fakeRequest{identity: bob},
			wantUsername: &bob.Username,
		},
		{
			name:         "unauthenticated request identity ignored",
			request:      fakeRequest{identity: models.AnonymousUser},
			wantUsername: nil,
		},
		{
			name:         "request without identity",
			request:      fakeRequest{},
			wantUsername: nil,
		},
		{
			name:         "explicit user wins over request identity",
			user:         alice,
			request:      fakeRequest{identity: bob},
			wantUsername: &alice.Username,
		},
		{
			name:         "typed nil user falls back to request identity",
			user:         (*models.User)(nil),
			request:      fakeRequest{identity: bob},
			wantUsername: &bob.Username,
		},
		{
			name:         "typed nil request identity ignored",
			request:      fakeRequest{identity: (*models.User)(nil)},
			wantUsername: nil,
		},
		{
			name:         "explicit anonymous user blocks request identity",
			user:         models.AnonymousUser,
			request:      fakeRequest{identity: bob},
			wantUsername: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			rec, _, _ := newTestRecorder(t, store)

			event, err := rec.Record(context.Background(), Params{
				EventType: "login",
				Message:   "user resolution",
				User:      tt.user,
				Request:   tt.request,
			})
			require.NoError(t, err)

			if tt.wantUsername == nil {
				assert.Nil(t, event.Username)
				assert.Nil(t, event.UserID)
				return
			}
			require.NotNil(t, event.Username)
			require.NotNil(t, event.UserID)
			assert.Equal(t, *tt.wantUsername, *event.Username)
		})
	}
}

func TestRecorder_Record_RequestIdentityStoredByID(t *testing.T) {
	store := &mockStore{}
	rec, _, _ := newTestRecorder(t, store)
	carol := authedUser("carol")

	event, err := rec.Record(context.Background(), Params{
		EventType: "click",
		Message:   "button",
		Request:   fakeRequest{identity: carol},
	})
	require.NoError(t, err)
	require.NotNil(t, event.UserID)
	assert.Equal(t, carol.ID, *event.UserID)
}

func TestRecorder_Record_SessionKey(t *testing.T) {
	tests := []struct {
		name       string
		sessionKey string
		request    Request
		want       string
	}{
		{name: "no request", want: ""},
		{name: "explicit key", sessionKey: "explicit", want: "explicit"},
		{name: "derived from request", request: fakeRequest{session: fakeSession("abc123")}, want: "abc123"},
		{name: "explicit wins", sessionKey: "explicit", request: fakeRequest{session: fakeSession("abc123")}, want: "explicit"},
		{name: "request without session", request: fakeRequest{}, want: ""},
		{name: "derived key truncated", request: fakeRequest{session: fakeSession(strings.Repeat("s", 90))}, want: strings.Repeat("s", 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			rec, _, _ := newTestRecorder(t, store)

			event, err := rec.Record(context.Background(), Params{
				EventType:  "session",
				Message:    "session key",
				SessionKey: tt.sessionKey,
				Request:    tt.request,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, event.SessionKey)
		})
	}
}

func TestRecorder_Record_OccurredAt(t *testing.T) {
	t.Run("naive value localized to configured zone", func(t *testing.T) {
		store := &mockStore{}
		rec, _, _ := newTestRecorder(t, store)

		event, err := rec.Record(context.Background(), Params{
			EventType:  "ts",
			Message:    "naive",
			OccurredAt: "2024-01-01T10:00:00",
		})
		require.NoError(t, err)

		want := time.Date(2024, 1, 1, 10, 0, 0, 0, testZone)
		assert.True(t, want.Equal(event.OccurredAt), "got %s", event.OccurredAt)
		assert.Equal(t, testZone, event.OccurredAt.Location())
	})

	t.Run("offset value keeps its offset", func(t *testing.T) {
		store := &mockStore{}
		rec, _, _ := newTestRecorder(t, store)

		event, err := rec.Record(context.Background(), Params{
			EventType:  "ts",
			Message:    "aware",
			OccurredAt: "2024-01-01T10:00:00+02:00",
		})
		require.NoError(t, err)

		want := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
		assert.True(t, want.Equal(event.OccurredAt), "got %s", event.OccurredAt)
		_, offset := event.OccurredAt.Zone()
		assert.Equal(t, 2*3600, offset)
	})

	t.Run("unparsable value falls back to now", func(t *testing.T) {
		store := &mockStore{}
		rec, _, clock := newTestRecorder(t, store)

		event, err := rec.Record(context.Background(), Params{
			EventType:  "ts",
			Message:    "bad",
			OccurredAt: "not-a-date",
		})
		require.NoError(t, err)
		assert.True(t, clock.now.Equal(event.OccurredAt))
	})

	t.Run("missing value uses now", func(t *testing.T) {
		store := &mockStore{}
		rec, _, clock := newTestRecorder(t, store)

		event, err := rec.Record(context.Background(), Params{EventType: "ts", Message: "none"})
		require.NoError(t, err)
		assert.True(t, clock.now.Equal(event.OccurredAt))
	})

	t.Run("system clock fallback is close to wall time", func(t *testing.T) {
		store := &mockStore{}
		rec := NewRecorder(store, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
			WithClock(NewSystemClock(testZone)))

		before := time.Now()
		event, err := rec.Record(context.Background(), Params{
			EventType:  "ts",
			Message:    "bad",
			OccurredAt: "not-a-date",
		})
		after := time.Now()
		require.NoError(t, err)

		assert.False(t, event.OccurredAt.Before(before.Add(-time.Second)))
		assert.False(t, event.OccurredAt.After(after.Add(time.Second)))
		assert.Equal(t, testZone, event.OccurredAt.Location())
	})
}

func TestRecorder_Record_LogLevels(t *testing.T) {
	tests := []struct {
		severity  string
		wantLevel string
	}{
		{severity: "info", wantLevel: "INFO"},
		{severity: "success", wantLevel: "INFO"},
		{severity: "warning", wantLevel: "WARN"},
		{severity: "error", wantLevel: "WARN"},
		{severity: "critical", wantLevel: "WARN"},
		{severity: "", wantLevel: "INFO"},
	}

	for _, tt := range tests {
		t.Run("severity "+tt.severity, func(t *testing.T) {
			store := &mockStore{}
			rec, buf, _ := newTestRecorder(t, store)

			_, err := rec.Record(context.Background(), Params{
				EventType: "level",
				Message:   "level check",
				Severity:  tt.severity,
			})
			require.NoError(t, err)

			lines := logLines(t, buf)
			require.Len(t, lines, 1)
			assert.Equal(t, tt.wantLevel, lines[0]["level"])
		})
	}
}

func TestRecorder_Record_LogRecord(t *testing.T) {
	store := &mockStore{}
	rec, buf, _ := newTestRecorder(t, store)
	dave := authedUser("dave")
	longType := strings.Repeat("t", 70)

	_, err := rec.Record(context.Background(), Params{
		EventType: longType,
		Message:   "export finished",
		Severity:  "success",
		Source:    "frontend",
		User:      dave,
	})
	require.NoError(t, err)

	lines := logLines(t, buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "[AdminDebug] export finished", line["msg"])
	assert.Equal(t, "frontend", line["source"])
	assert.Equal(t, "success", line["severity"])
	assert.Equal(t, longType, line["event_type"], "log carries the untruncated type")
	assert.Equal(t, "dave", line["user"])
}

func TestRecorder_Record_LogUserNull(t *testing.T) {
	store := &mockStore{}
	rec, buf, _ := newTestRecorder(t, store)

	_, err := rec.Record(context.Background(), Params{EventType: "anon", Message: "anonymous"})
	require.NoError(t, err)
	_, err = rec.Record(context.Background(), Params{EventType: "anon", Message: "typed nil", User: (*models.User)(nil)})
	require.NoError(t, err)

	lines := logLines(t, buf)
	require.Len(t, lines, 2)
	for _, line := range lines {
		user, ok := line["user"]
		assert.True(t, ok)
		assert.Nil(t, user, line["msg"])
	}
}

func TestRecorder_Record_StoreError(t *testing.T) {
	storeErr := errors.New("connection refused")
	store := &mockStore{createErr: storeErr}
	notifier := &mockNotifier{}
	rec, buf, _ := newTestRecorder(t, store, WithNotifier(notifier))

	event, err := rec.Record(context.Background(), Params{EventType: "fail", Message: "store down"})
	assert.Nil(t, event)
	assert.Same(t, storeErr, err)
	assert.Empty(t, strings.TrimSpace(buf.String()))
	assert.Empty(t, notifier.notified)
}

func TestRecorder_Record_Notifier(t *testing.T) {
	store := &mockStore{}
	notifier := &mockNotifier{}
	rec, _, _ := newTestRecorder(t, store, WithNotifier(notifier))

	event, err := rec.Record(context.Background(), Params{EventType: "notify", Message: "fan out"})
	require.NoError(t, err)
	require.Len(t, notifier.notified, 1)
	assert.Same(t, event, notifier.notified[0])
}

func TestRecorder_Record_PayloadPreserved(t *testing.T) {
	store := &mockStore{}
	rec, _, _ := newTestRecorder(t, store)
	payload := map[string]interface{}{
		"path":  gofakeit.URL(),
		"count": 3,
	}

	event, err := rec.Record(context.Background(), Params{
		EventType: "payload",
		Message:   "with payload",
		Payload:   payload,
	})
	require.NoError(t, err)
	assert.Equal(t, payload, event.Payload)
}

func TestRecorder_Record_TruncationProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		eventType := rapid.String().Draw(rt, "event_type")
		sessionKey := rapid.String().Draw(rt, "session_key")

		store := &mockStore{}
		rec := NewRecorder(store, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

		event, err := rec.Record(context.Background(), Params{
			EventType:  eventType,
			Message:    "property",
			SessionKey: sessionKey,
		})
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}

		for _, c := range []struct{ in, out string }{
			{eventType, event.EventType},
			{sessionKey, event.SessionKey},
		} {
			inRunes := []rune(c.in)
			want := c.in
			if len(inRunes) > 64 {
				want = string(inRunes[:64])
			}
			if c.out != want {
				rt.Fatalf("truncate(%q) = %q, want %q", c.in, c.out, want)
			}
		}
	})
}

func TestRecorder_Record_UnauthenticatedNeverStoredProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		user := &models.User{
			ID:        rapid.StringMatching(`[a-z0-9-]{0,12}`).Draw(rt, "id"),
			Username:  rapid.String().Draw(rt, "username"),
			Anonymous: rapid.Bool().Draw(rt, "anonymous"),
		}

		store := &mockStore{}
		rec := NewRecorder(store, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
		event, err := rec.Record(context.Background(), Params{EventType: "p", Message: "p", User: user})
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}

		stored := event.UserID != nil
		if stored != user.IsAuthenticated() {
			rt.Fatalf("stored=%v authenticated=%v", stored, user.IsAuthenticated())
		}
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", truncate("", 64))
	assert.Equal(t, "abc", truncate("abc", 64))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "日本", truncate("日本語", 2))
	assert.Equal(t, strings.Repeat("x", 64), truncate(strings.Repeat("x", 64), 64))
}
