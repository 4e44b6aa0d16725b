package notify

import (
	"context"
	"fmt"

	"github.com/pmws/pmws/jobs"
)

// Enqueuer submits notification tasks to the background queue.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) error
	EnqueueSendSMS(ctx context.Context, payload jobs.SendSMSPayload) error
}

// QueueSender hands notifications to the worker instead of delivering them
// inline. A successful send means the task was accepted by the queue.
type QueueSender struct {
	queue Enqueuer
}

// NewQueueSender wraps an Enqueuer.
func NewQueueSender(queue Enqueuer) *QueueSender {
	return &QueueSender{queue: queue}
}

// SendEmail enqueues an email task.
func (q *QueueSender) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	if err := q.queue.EnqueueSendEmail(ctx, jobs.SendEmailPayload{To: to, Subject: subject, Body: htmlBody}); err != nil {
		return fmt.Errorf("notify: enqueue email: %w", err)
	}
	return nil
}

// SendSMS enqueues an SMS task.
func (q *QueueSender) SendSMS(ctx context.Context, to, text string) error {
	if err := q.queue.EnqueueSendSMS(ctx, jobs.SendSMSPayload{To: to, Text: text}); err != nil {
		return fmt.Errorf("notify: enqueue sms: %w", err)
	}
	return nil
}

var _ Sender = (*QueueSender)(nil)
