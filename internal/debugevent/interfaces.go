// Package debugevent records admin debug console events and serializes them
// for display.
package debugevent

import (
	"context"
	"time"

	"github.com/telhawk-systems/debugconsole/internal/models"
)

// Identity is the acting user behind an event.
type Identity interface {
	IsAuthenticated() bool
	// Subject is the stable identifier stored with the event.
	Subject() string
	// DisplayName is the name written to logs.
	DisplayName() string
}

// Session exposes the caller's session identifier.
type Session interface {
	SessionKey() string
}

// Request is the optional request context an event is recorded from.
// Either accessor may return nil.
type Request interface {
	Identity() Identity
	Session() Session
}

// Store persists events. CreateEvent fills store-assigned fields (ID,
// CreatedAt) on the passed event.
type Store interface {
	CreateEvent(ctx context.Context, event *models.DebugEvent) error
}

// Notifier receives every successfully recorded event.
type Notifier interface {
	Notify(ctx context.Context, event *models.DebugEvent)
}

// Clock supplies the current time and the configured local timezone.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// SystemClock is the wall clock pinned to a configured location.
type SystemClock struct {
	loc *time.Location
}

// NewSystemClock returns a clock in loc. A nil loc means UTC.
func NewSystemClock(loc *time.Location) *SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return &SystemClock{loc: loc}
}

func (c *SystemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *SystemClock) Location() *time.Location {
	return c.loc
}
