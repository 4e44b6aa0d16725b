package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for delivering a notification email.
	TaskTypeSendEmail = "notify:email"
	// TaskTypeSendSMS is the task type for delivering a notification SMS.
	TaskTypeSendSMS = "notify:sms"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendSMSPayload describes the information required to send a text message.
type SendSMSPayload struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// Deliverer performs the actual outbound delivery for queued notifications.
type Deliverer interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
	SendSMS(ctx context.Context, to, text string) error
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.MaxRetry(5)), nil
}

// NewSendSMSTask constructs an Asynq task.
func NewSendSMSTask(payload SendSMSPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendSMS, data, asynq.MaxRetry(5)), nil
}

// NotificationJob delivers queued notifications through a Deliverer.
type NotificationJob struct {
	deliverer Deliverer
	tracker   Tracker
}

// Tracker records job outcomes. It is satisfied by jobmetrics.Metrics.
type Tracker interface {
	Observe(job string, fn func() error) error
}

// NewNotificationJob constructs the handler pair for notification tasks.
func NewNotificationJob(deliverer Deliverer, tracker Tracker) *NotificationJob {
	return &NotificationJob{deliverer: deliverer, tracker: tracker}
}

// HandleEmail processes TaskTypeSendEmail tasks.
func (j *NotificationJob) HandleEmail(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode email payload: %v: %w", err, asynq.SkipRetry)
	}
	if strings.TrimSpace(payload.To) == "" {
		return fmt.Errorf("email payload without recipient: %w", asynq.SkipRetry)
	}
	return j.observe(TaskTypeSendEmail, func() error {
		return j.deliverer.SendEmail(ctx, payload.To, payload.Subject, payload.Body)
	})
}

// HandleSMS processes TaskTypeSendSMS tasks.
func (j *NotificationJob) HandleSMS(ctx context.Context, t *asynq.Task) error {
	var payload SendSMSPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode sms payload: %v: %w", err, asynq.SkipRetry)
	}
	if strings.TrimSpace(payload.To) == "" {
		return fmt.Errorf("sms payload without recipient: %w", asynq.SkipRetry)
	}
	return j.observe(TaskTypeSendSMS, func() error {
		return j.deliverer.SendSMS(ctx, payload.To, payload.Text)
	})
}

// Handlers returns the task registrations for NewWorker.
func (j *NotificationJob) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskTypeSendEmail, Handler: j.HandleEmail},
		{Type: TaskTypeSendSMS, Handler: j.HandleSMS},
	}
}

func (j *NotificationJob) observe(job string, fn func() error) error {
	if j.tracker == nil {
		return fn()
	}
	return j.tracker.Observe(job, fn)
}
