package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultBrevoURL is the Brevo API base URL.
const DefaultBrevoURL = "https://api.brevo.com/v3"

// BrevoConfig configures the Brevo transactional API client.
type BrevoConfig struct {
	BaseURL     string
	APIKey      string
	SenderEmail string
	SenderName  string
	// SMSSender is the alphanumeric sender id shown on SMS messages.
	SMSSender string
	Timeout   time.Duration
}

// BrevoSender delivers email and SMS through Brevo.
type BrevoSender struct {
	client *resty.Client
	cfg    BrevoConfig
	logger *slog.Logger
}

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoEmailRequest struct {
	Sender      brevoContact   `json:"sender"`
	To          []brevoContact `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

type brevoSMSRequest struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
}

type brevoError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewBrevoSender builds a BrevoSender.
func NewBrevoSender(cfg BrevoConfig, logger *slog.Logger) (*BrevoSender, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("notify: brevo api key must be provided")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBrevoURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("api-key", cfg.APIKey)
	return &BrevoSender{client: client, cfg: cfg, logger: logger}, nil
}

// SendEmail posts a transactional email.
func (b *BrevoSender) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	b.logger.InfoContext(ctx, "sending email", slog.String("to", to), slog.String("subject", subject))
	body := brevoEmailRequest{
		Sender:      brevoContact{Email: b.cfg.SenderEmail, Name: b.cfg.SenderName},
		To:          []brevoContact{{Email: to}},
		Subject:     subject,
		HTMLContent: htmlBody,
	}
	return b.post(ctx, "/smtp/email", body)
}

// SendSMS posts a transactional SMS. to must be in E.164 format.
func (b *BrevoSender) SendSMS(ctx context.Context, to, text string) error {
	b.logger.InfoContext(ctx, "sending sms", slog.String("to", to))
	body := brevoSMSRequest{
		Sender:    b.cfg.SMSSender,
		Recipient: to,
		Content:   text,
	}
	return b.post(ctx, "/transactionalSMS/sms", body)
}

func (b *BrevoSender) post(ctx context.Context, path string, body any) error {
	var apiErr brevoError
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(body).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		b.logger.ErrorContext(ctx, "brevo request failed", slog.String("path", path), slog.Any("error", err))
		return fmt.Errorf("notify: brevo %s: %w", path, err)
	}
	if resp.IsError() {
		b.logger.ErrorContext(ctx, "brevo rejected request",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode()),
			slog.String("code", apiErr.Code),
			slog.String("message", apiErr.Message),
		)
		return fmt.Errorf("notify: brevo %s returned %d: %s", path, resp.StatusCode(), apiErr.Message)
	}
	return nil
}

var _ Sender = (*BrevoSender)(nil)
