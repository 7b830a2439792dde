package repository

import (
	"context"
	"errors"
	"time"

	"github.com/telhawk-systems/debugconsole/internal/models"
)

var (
	ErrEventNotFound = errors.New("debug event not found")
	// ErrValueTooLong is returned when an event bypassed the recorder's
	// truncation and a bounded column rejected it.
	ErrValueTooLong = errors.New("debug event field exceeds column length")
)

// DefaultListLimit caps ListEvents when the filter sets no limit.
const DefaultListLimit = 100

type Repository interface {
	// CreateEvent inserts event and fills its ID and CreatedAt.
	CreateEvent(ctx context.Context, event *models.DebugEvent) error
	GetEvent(ctx context.Context, id string) (*models.DebugEvent, error)
	// ListEvents returns matching events newest first, plus the total
	// number of matches ignoring Limit/Offset.
	ListEvents(ctx context.Context, filter models.EventFilter) ([]*models.DebugEvent, int, error)
	// PurgeEvents deletes events that occurred before the cutoff.
	PurgeEvents(ctx context.Context, before time.Time) (int64, error)
}
