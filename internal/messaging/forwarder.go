package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/telhawk-systems/debugconsole/internal/logging"
	"github.com/telhawk-systems/debugconsole/internal/metrics"
	"github.com/telhawk-systems/debugconsole/internal/middleware"
	"github.com/telhawk-systems/debugconsole/internal/models"
)

const publishTimeout = 5 * time.Second

// Publisher is satisfied by *Client.
type Publisher interface {
	PublishMsg(ctx context.Context, msg *Message) error
}

// Forwarder publishes each recorded event's AsMap JSON in the background.
// Publish failures are logged and counted, never returned.
type Forwarder struct {
	publisher Publisher
	subject   string
	logger    *slog.Logger
	wg        sync.WaitGroup
}

func NewForwarder(publisher Publisher, subject string, logger *slog.Logger) *Forwarder {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{
		publisher: publisher,
		subject:   subject,
		logger:    logger,
	}
}

// Notify queues event for publishing and returns immediately.
func (f *Forwarder) Notify(ctx context.Context, event *models.DebugEvent) {
	data, err := json.Marshal(event.AsMap())
	if err != nil {
		metrics.EventsForwarded.WithLabelValues("error").Inc()
		f.logger.WarnContext(ctx, "failed to encode debug event", logging.EventID(event.ID), logging.Error(err))
		return
	}

	msg := &Message{
		Subject: f.subject,
		Data:    data,
		Headers: map[string]string{
			"Event-Type": event.EventType,
			"Severity":   event.Severity,
			"Source":     event.Source,
		},
	}
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		msg.Headers[middleware.RequestIDHeader] = reqID
	}

	// The request context ends when the handler returns.
	pubCtx := context.WithoutCancel(ctx)

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		pubCtx, cancel := context.WithTimeout(pubCtx, publishTimeout)
		defer cancel()

		if err := f.publisher.PublishMsg(pubCtx, msg); err != nil {
			metrics.EventsForwarded.WithLabelValues("error").Inc()
			f.logger.WarnContext(pubCtx, "failed to forward debug event",
				logging.EventID(event.ID), logging.Subject(f.subject), logging.Error(err))
			return
		}
		metrics.EventsForwarded.WithLabelValues("ok").Inc()
	}()
}

// Wait blocks until in-flight publishes finish.
func (f *Forwarder) Wait() {
	f.wg.Wait()
}
