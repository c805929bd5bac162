package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pontoflow/ponto-api/pkg/config"
	"github.com/pontoflow/ponto-api/pkg/jobs"
)

// Notification event types pushed to downstream consumers.
const (
	NotifyPunchCommitted     = "punch.committed"
	NotifyPunchRejected      = "punch.rejected"
	NotifyAdjustmentCreated  = "adjustment.created"
	NotifyAdjustmentResolved = "adjustment.resolved"
)

// Notification is a best-effort domain event. Delivery failures never fail
// the operation that produced the notification.
type Notification struct {
	Type       string                 `json:"type"`
	CompanyID  string                 `json:"company_id"`
	EmployeeID string                 `json:"employee_id,omitempty"`
	ResourceID string                 `json:"resource_id"`
	At         time.Time              `json:"at"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// Notifier delivers a notification to its channel.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// NotifierFunc allows using plain functions as notifiers.
type NotifierFunc func(ctx context.Context, n Notification) error

// Send implements Notifier.
func (f NotifierFunc) Send(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// notificationPublisher is the narrow surface the domain services depend on.
type notificationPublisher interface {
	Publish(ctx context.Context, n Notification) error
}

// NotificationDispatcher fans notifications out to a notifier through an
// in-memory worker queue so that slow channels never block request handling.
type NotificationDispatcher struct {
	queue    *jobs.Queue
	notifier Notifier
	timeout  time.Duration
	logger   *zap.Logger
}

// NewNotificationDispatcher builds a dispatcher backed by the configured
// worker pool. A nil notifier falls back to structured log output.
func NewNotificationDispatcher(cfg config.NotificationsConfig, notifier Notifier, logger *zap.Logger) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NotifierFunc(func(_ context.Context, n Notification) error {
			logger.Info("notification",
				zap.String("type", n.Type),
				zap.String("company_id", n.CompanyID),
				zap.String("resource_id", n.ResourceID),
			)
			return nil
		})
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	d := &NotificationDispatcher{notifier: notifier, timeout: timeout, logger: logger}
	d.queue = jobs.NewQueue("notifications", d.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return d
}

// Start launches the worker pool.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains the workers.
func (d *NotificationDispatcher) Stop() {
	d.queue.Stop()
}

// Publish enqueues the notification, giving up after the configured publish
// timeout when the buffer is saturated.
func (d *NotificationDispatcher) Publish(ctx context.Context, n Notification) error {
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}
	job := jobs.Job{ID: uuid.NewString(), Type: n.Type, Payload: n}

	done := make(chan error, 1)
	go func() {
		done <- d.queue.Enqueue(job)
	}()

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return context.DeadlineExceeded
	}
}

func (d *NotificationDispatcher) handle(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(Notification)
	if !ok {
		d.logger.Warn("discarding malformed notification job", zap.String("job_id", job.ID))
		return nil
	}
	return d.notifier.Send(ctx, n)
}
