// Package notifications delivers purchase email requests out of band. A
// failed delivery never affects transaction state.
package notifications

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/neline/marketplace-backend/pkg/enums"
	"github.com/neline/marketplace-backend/pkg/logger"
	"github.com/neline/marketplace-backend/pkg/worker"
)

const defaultPublishTimeout = 10 * time.Second

// Message asks the mail service to render Kind for Email.
type Message struct {
	Email      string                 `json:"email"`
	Kind       enums.NotificationKind `json:"kind"`
	PaymentID  string                 `json:"payment_id"`
	Context    map[string]any         `json:"context,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Publisher hands a message to the delivery channel.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Notifier is the fire-and-forget surface used by the transaction services.
type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

// Dispatcher publishes messages on a bounded worker pool.
type Dispatcher struct {
	publisher Publisher
	pool      *worker.Pool
	logg      *logger.Logger
	timeout   time.Duration
	now       func() time.Time
}

func NewDispatcher(publisher Publisher, workers, queueSize int, logg *logger.Logger) (*Dispatcher, error) {
	if publisher == nil {
		return nil, fmt.Errorf("notification publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{
		publisher: publisher,
		pool:      worker.NewPool(workers, queueSize),
		logg:      logg,
		timeout:   defaultPublishTimeout,
		now:       time.Now,
	}, nil
}

// Notify queues msg and returns immediately. Messages without an email are
// dropped since guests may check out without one.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) {
	if strings.TrimSpace(msg.Email) == "" {
		return
	}
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = d.now().UTC()
	}
	ctx = d.logg.WithFields(context.WithoutCancel(ctx), map[string]any{
		"notification_kind": string(msg.Kind),
		"payment_id":        msg.PaymentID,
	})

	err := d.pool.TrySubmit(func() {
		publishCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		if err := d.publisher.Publish(publishCtx, msg); err != nil {
			d.logg.Error(ctx, "notification.publish_failed", err)
		}
	})
	if err != nil {
		d.logg.Error(ctx, "notification.dropped", err)
	}
}

// Close drains pending notifications and releases the publisher.
func (d *Dispatcher) Close() error {
	d.pool.Stop()
	if closer, ok := d.publisher.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// LogPublisher records notifications in the structured log when no broker is configured.
type LogPublisher struct {
	logg *logger.Logger
}

func NewLogPublisher(logg *logger.Logger) *LogPublisher {
	return &LogPublisher{logg: logg}
}

func (p *LogPublisher) Publish(ctx context.Context, msg Message) error {
	ctx = p.logg.WithFields(ctx, map[string]any{
		"email": msg.Email,
		"kind":  string(msg.Kind),
	})
	p.logg.Info(ctx, "notification.logged")
	return nil
}
