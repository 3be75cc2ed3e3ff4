// Package notify holds the outbound channels: SMS for cleaners and SMTP
// email for guests. Both are collaborators behind small interfaces so the
// services never know which vendor is configured.
package notify

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by a channel whose credentials are absent.
// Callers log it and leave the unit of work untouched for the next cycle.
var ErrNotConfigured = errors.New("channel not configured")

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type Mailer interface {
	SendMail(ctx context.Context, to, subject, body string) error
}

// DisabledSMS is the SMS channel used when no provider is configured.
type DisabledSMS struct{}

func (DisabledSMS) SendSMS(context.Context, string, string) error {
	return ErrNotConfigured
}

// DisabledMailer is the email channel used when SMTP is not configured.
type DisabledMailer struct{}

func (DisabledMailer) SendMail(context.Context, string, string, string) error {
	return ErrNotConfigured
}
