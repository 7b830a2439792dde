package repository

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/telhawk-systems/debugconsole/internal/models"
)

// InMemoryRepository keeps events in process memory (development only).
type InMemoryRepository struct {
	events map[string]*models.DebugEvent
	mu     sync.RWMutex
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		events: make(map[string]*models.DebugEvent),
	}
}

func (r *InMemoryRepository) CreateEvent(ctx context.Context, event *models.DebugEvent) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate event id: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	event.ID = id.String()
	event.CreatedAt = time.Now().UTC()
	r.events[event.ID] = cloneEvent(event)
	return nil
}

func (r *InMemoryRepository) GetEvent(ctx context.Context, id string) (*models.DebugEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, exists := r.events[id]
	if !exists {
		return nil, ErrEventNotFound
	}
	return cloneEvent(event), nil
}

func (r *InMemoryRepository) ListEvents(ctx context.Context, filter models.EventFilter) ([]*models.DebugEvent, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.DebugEvent
	for _, event := range r.events {
		if !matches(event, filter) {
			continue
		}
		matched = append(matched, cloneEvent(event))
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].OccurredAt.Equal(matched[j].OccurredAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	offset := max(filter.Offset, 0)
	if offset >= total {
		return []*models.DebugEvent{}, total, nil
	}
	end := min(offset+limit, total)
	return matched[offset:end], total, nil
}

func (r *InMemoryRepository) PurgeEvents(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, event := range r.events {
		if event.OccurredAt.Before(before) {
			delete(r.events, id)
			deleted++
		}
	}
	return deleted, nil
}

// cloneEvent copies event so callers never share its payload map with the
// stored copy.
func cloneEvent(event *models.DebugEvent) *models.DebugEvent {
	out := *event
	out.Payload = maps.Clone(event.Payload)
	if out.Payload == nil {
		out.Payload = map[string]interface{}{}
	}
	return &out
}

func matches(event *models.DebugEvent, filter models.EventFilter) bool {
	if filter.Severity != "" && event.Severity != filter.Severity {
		return false
	}
	if filter.Source != "" && event.Source != filter.Source {
		return false
	}
	if filter.EventType != "" && event.EventType != filter.EventType {
		return false
	}
	if filter.Since != nil && event.OccurredAt.Before(*filter.Since) {
		return false
	}
	return true
}
