// Package notify delivers rendered messages by email or SMS.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Channel selects the delivery medium for a notification.
type Channel string

// Supported channels.
const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// ParseChannel maps a request value to a Channel, defaulting to email.
func ParseChannel(raw string) (Channel, error) {
	switch Channel(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ChannelEmail:
		return ChannelEmail, nil
	case ChannelSMS:
		return ChannelSMS, nil
	default:
		return "", fmt.Errorf("notify: unsupported channel %q", raw)
	}
}

// Sender delivers a rendered message to one recipient.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
	SendSMS(ctx context.Context, to, text string) error
}

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct {
	Logger *slog.Logger
}

// SendEmail logs the email envelope.
func (s LogSender) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	s.logger().InfoContext(ctx, "email notification",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.Int("body_bytes", len(htmlBody)),
	)
	return nil
}

// SendSMS logs the SMS envelope.
func (s LogSender) SendSMS(ctx context.Context, to, text string) error {
	s.logger().InfoContext(ctx, "sms notification",
		slog.String("to", to),
		slog.Int("text_bytes", len(text)),
	)
	return nil
}

func (s LogSender) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
