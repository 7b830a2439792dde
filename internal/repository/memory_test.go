package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/debugconsole/internal/models"
)

func seedEvents(t *testing.T, repo *InMemoryRepository, base time.Time) {
	t.Helper()
	fixtures := []struct {
		eventType string
		severity  string
		source    string
		offset    time.Duration
	}{
		{"login", models.SeverityInfo, models.SourceBackend, 0},
		{"quiz_error", models.SeverityError, models.SourceFrontend, time.Minute},
		{"quiz_saved", models.SeveritySuccess, models.SourceFrontend, 2 * time.Minute},
		{"slow_query", models.SeverityWarning, models.SourceBackend, 3 * time.Minute},
	}
	for _, f := range fixtures {
		err := repo.CreateEvent(context.Background(), &models.DebugEvent{
			EventType:  f.eventType,
			Message:    gofakeit.Sentence(5),
			Severity:   f.severity,
			Source:     f.source,
			Payload:    map[string]interface{}{},
			OccurredAt: base.Add(f.offset),
		})
		require.NoError(t, err)
	}
}

func TestInMemoryRepository_CreateAndGet(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	event := &models.DebugEvent{
		EventType:  "login",
		Message:    "user signed in",
		Severity:   models.SeverityInfo,
		Source:     models.SourceBackend,
		OccurredAt: time.Now(),
	}
	require.NoError(t, repo.CreateEvent(ctx, event))
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())

	got, err := repo.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.EventType, got.EventType)

	// Returned events are copies.
	got.Message = "mutated"
	again, err := repo.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "user signed in", again.Message)
}

func TestInMemoryRepository_PayloadIsolation(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	payload := map[string]interface{}{"question_id": "q-1"}
	event := &models.DebugEvent{EventType: "quiz", Message: "loaded", Payload: payload, OccurredAt: time.Now()}
	require.NoError(t, repo.CreateEvent(ctx, event))

	payload["question_id"] = "changed after create"

	got, err := repo.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "q-1", got.Payload["question_id"])

	got.Payload["question_id"] = "changed after get"
	listed, _, err := repo.ListEvents(ctx, models.EventFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "q-1", listed[0].Payload["question_id"])

	listed[0].Payload["extra"] = true
	again, err := repo.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"question_id": "q-1"}, again.Payload)
}

func TestInMemoryRepository_GetNotFound(t *testing.T) {
	repo := NewInMemoryRepository()
	_, err := repo.GetEvent(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestInMemoryRepository_ListEvents(t *testing.T) {
	repo := NewInMemoryRepository()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	seedEvents(t, repo, base)
	since := base.Add(90 * time.Second)

	tests := []struct {
		name      string
		filter    models.EventFilter
		wantTypes []string
		wantTotal int
	}{
		{
			name:      "all newest first",
			filter:    models.EventFilter{},
			wantTypes: []string{"slow_query", "quiz_saved", "quiz_error", "login"},
			wantTotal: 4,
		},
		{
			name:      "by severity",
			filter:    models.EventFilter{Severity: models.SeverityError},
			wantTypes: []string{"quiz_error"},
			wantTotal: 1,
		},
		{
			name:      "by source",
			filter:    models.EventFilter{Source: models.SourceFrontend},
			wantTypes: []string{"quiz_saved", "quiz_error"},
			wantTotal: 2,
		},
		{
			name:      "by event type",
			filter:    models.EventFilter{EventType: "login"},
			wantTypes: []string{"login"},
			wantTotal: 1,
		},
		{
			name:      "since",
			filter:    models.EventFilter{Since: &since},
			wantTypes: []string{"slow_query", "quiz_saved"},
			wantTotal: 2,
		},
		{
			name:      "limit and offset",
			filter:    models.EventFilter{Limit: 2, Offset: 1},
			wantTypes: []string{"quiz_saved", "quiz_error"},
			wantTotal: 4,
		},
		{
			name:      "offset past end",
			filter:    models.EventFilter{Offset: 10},
			wantTypes: []string{},
			wantTotal: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, total, err := repo.ListEvents(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)

			types := make([]string, 0, len(events))
			for _, e := range events {
				types = append(types, e.EventType)
			}
			assert.Equal(t, tt.wantTypes, types)
		})
	}
}

func TestInMemoryRepository_PurgeEvents(t *testing.T) {
	repo := NewInMemoryRepository()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	seedEvents(t, repo, base)

	deleted, err := repo.PurgeEvents(context.Background(), base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	events, total, err := repo.ListEvents(context.Background(), models.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "slow_query", events[0].EventType)
}

func TestInMemoryRepository_ConcurrentCreate(t *testing.T) {
	repo := NewInMemoryRepository()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.CreateEvent(context.Background(), &models.DebugEvent{
				EventType:  fmt.Sprintf("event_%d", i),
				OccurredAt: time.Now(),
			})
		}(i)
	}
	wg.Wait()

	_, total, err := repo.ListEvents(context.Background(), models.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, 50, total)
}
