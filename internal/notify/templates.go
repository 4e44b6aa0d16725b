package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
	"time"
)

// ResetCodeSubject is the subject of the password reset email.
const ResetCodeSubject = "Password Reset Code."

const resetCodeEmail = `<div style="text-align: center;">
    <img src="{{.LogoURL}}" alt="Logo" width="100" style="display: inline-block; border: 0;" />
</div>
<div style="background-color: #ffffff; padding: 40px; font-family: Arial, sans-serif; color: #333333;">
    <h1 style="font-size: 24px; margin: 0 0 10px;">Verify Your Email</h1>
    <p style="font-size: 16px; line-height: 24px; margin: 0 0 10px;">
        Thanks for helping us keep your account secure! Use the code shared below to reset your password.
    </p>
    <div style="margin: auto; text-align: center;">
        <span style="font-size: 16px; display: inline-block; border-radius: 4px; background-color: #27A8E7; color: #ffffff; padding: 12px 24px;">{{.Code}}</span>
    </div>
    <p style="font-size: 14px; color: #777777; margin: 20px 0 0;">
        If you did not reset your password, no further action is required. This code will expire in {{.Expiry}}.
    </p>
</div>
<div style="padding: 20px; text-align: center; font-family: Arial, sans-serif; font-size: 12px; color: #777777;">
    <p style="margin: 0;">&copy; {{.Year}} {{.Trademark}}. All rights reserved.</p>
</div>
`

const resetCodeSMS = `Your password reset code for {{.AppName}} is: {{.Code}}. This code will expire in {{.Expiry}}.`

// Branding holds the static values rendered into every message.
type Branding struct {
	AppName   string
	Trademark string
	LogoURL   string
}

// ResetCodeData is the per-message input of the reset templates.
type ResetCodeData struct {
	Branding
	Code   string
	Expiry string
	Year   int
}

// Templates renders notification bodies.
type Templates struct {
	branding Branding
	email    *htmltemplate.Template
	sms      *template.Template
	now      func() time.Time
}

// NewTemplates parses the built-in templates.
func NewTemplates(branding Branding) (*Templates, error) {
	email, err := htmltemplate.New("reset_email").Parse(resetCodeEmail)
	if err != nil {
		return nil, fmt.Errorf("notify: parse email template: %w", err)
	}
	sms, err := template.New("reset_sms").Parse(resetCodeSMS)
	if err != nil {
		return nil, fmt.Errorf("notify: parse sms template: %w", err)
	}
	if branding.Trademark == "" {
		branding.Trademark = branding.AppName
	}
	return &Templates{branding: branding, email: email, sms: sms, now: time.Now}, nil
}

// ResetCodeEmail renders the password reset email body.
func (t *Templates) ResetCodeEmail(code string, ttl time.Duration) (string, error) {
	var buf bytes.Buffer
	if err := t.email.Execute(&buf, t.data(code, ttl)); err != nil {
		return "", fmt.Errorf("notify: render email: %w", err)
	}
	return buf.String(), nil
}

// ResetCodeSMS renders the password reset SMS text.
func (t *Templates) ResetCodeSMS(code string, ttl time.Duration) (string, error) {
	var buf bytes.Buffer
	if err := t.sms.Execute(&buf, t.data(code, ttl)); err != nil {
		return "", fmt.Errorf("notify: render sms: %w", err)
	}
	return buf.String(), nil
}

func (t *Templates) data(code string, ttl time.Duration) ResetCodeData {
	return ResetCodeData{
		Branding: t.branding,
		Code:     code,
		Expiry:   humanDuration(ttl),
		Year:     t.now().Year(),
	}
}

func humanDuration(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
