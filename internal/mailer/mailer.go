// Package mailer implements A4: the outbound email capability consumed
// by PasswordAuth for account verification and password reset. Grounded
// on the config-driven external-integration style used throughout this
// codebase (each collaborator takes its settings through a small struct
// built from config at startup); no example repo in the retrieval pack
// ships an email client.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// Mailer sends the two transactional emails the auth ladder needs.
type Mailer interface {
	SendVerification(ctx context.Context, toEmail, token string) error
	SendPasswordReset(ctx context.Context, toEmail, token string) error
}

// Config configures the SMTP-backed implementation.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	VerifyURL   string // e.g. https://app.example.com/verify-email?token=%s
	ResetURL    string // e.g. https://app.example.com/reset-password?token=%s
}

// SMTPMailer sends mail through a standard SMTP relay using net/smtp.
// No retrieved example repo ships an email client, so this is the one
// ambient concern built directly on the standard library.
type SMTPMailer struct {
	cfg    Config
	logger *zap.Logger
}

func NewSMTP(cfg Config, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

func (m *SMTPMailer) send(ctx context.Context, toEmail, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.cfg.FromAddress, toEmail, subject, body)

	if err := smtp.SendMail(addr, auth, m.cfg.FromAddress, []string{toEmail}, []byte(msg)); err != nil {
		m.logger.Error("sending email", zap.String("to", toEmail), zap.Error(err))
		return err
	}
	return nil
}

func (m *SMTPMailer) SendVerification(ctx context.Context, toEmail, token string) error {
	link := fmt.Sprintf(m.cfg.VerifyURL, token)
	return m.send(ctx, toEmail, "Verify your email", "Verify your account: "+link)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, toEmail, token string) error {
	link := fmt.Sprintf(m.cfg.ResetURL, token)
	return m.send(ctx, toEmail, "Reset your password", "Reset your password: "+link)
}

// NoopMailer sends nothing and records every message in Sent; used in
// tests and local dev.
type NoopMailer struct {
	Sent []SentMessage
}

type SentMessage struct {
	Kind  string
	Email string
	Token string
}

func NewNoop() *NoopMailer { return &NoopMailer{} }

func (m *NoopMailer) SendVerification(ctx context.Context, toEmail, token string) error {
	m.Sent = append(m.Sent, SentMessage{Kind: "verification", Email: toEmail, Token: token})
	return nil
}

func (m *NoopMailer) SendPasswordReset(ctx context.Context, toEmail, token string) error {
	m.Sent = append(m.Sent, SentMessage{Kind: "password_reset", Email: toEmail, Token: token})
	return nil
}
