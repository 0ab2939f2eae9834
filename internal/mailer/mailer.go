// Package mailer sends account-verification email through resend. Delivery
// is a collaborator call: failures are logged and surfaced, never retried.
package mailer

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

type Mailer interface {
	SendVerification(ctx context.Context, to, name, token string) error
}

// NewToken returns a 64-character hex verification token.
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

type Resend struct {
	apiKey  string
	from    string
	baseURL string
	log     *zap.Logger
}

func NewResend(apiKey, from, baseURL string, log *zap.Logger) *Resend {
	return &Resend{apiKey: apiKey, from: from, baseURL: baseURL, log: log}
}

var _ Mailer = (*Resend)(nil)

func (r *Resend) SendVerification(ctx context.Context, to, name, token string) error {
	link := verificationLink(r.baseURL, to, token)
	if name == "" {
		name = "there"
	}

	client := resend.NewClient(r.apiKey)
	params := &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{to},
		Subject: "Verify your email address",
		Text: fmt.Sprintf("Hi %s,\n\nThanks for signing up. Confirm your email address by opening this link:\n%s\n\nIf you didn't create an account, ignore this message.\n", name, link),
		Html: fmt.Sprintf(`<p>Hi %s,</p><p>Thanks for signing up. Confirm your email address:</p><p><a href=%q>Verify my email</a></p><p>Or copy this link into your browser:<br/>%s</p><p>If you didn't create an account, ignore this message.</p>`, name, link, link),
	}
	if _, err := client.Emails.Send(params); err != nil {
		r.log.Error("verification email failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

func verificationLink(baseURL, email, token string) string {
	return fmt.Sprintf("%s/api/auth/verify-email?token=%s&email=%s",
		baseURL, url.QueryEscape(token), url.QueryEscape(email))
}

// Log writes the verification link to the log instead of sending mail; used
// when no resend API key is configured.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log}
}

var _ Mailer = (*Log)(nil)

func (l *Log) SendVerification(_ context.Context, to, _, token string) error {
	l.log.Info("verification link (mail transport disabled)",
		zap.String("to", to),
		zap.String("link", verificationLink("http://localhost:8080", to, token)),
	)
	return nil
}
