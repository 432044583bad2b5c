package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// MailMessage is a plain-text e-mail.
type MailMessage struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers outbound e-mail.
type Mailer interface {
	Send(ctx context.Context, message MailMessage) error
}

// SMTPConfig describes the outbound mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	logger zerolog.Logger
}

// NewSMTPMailer constructs an SMTP mailer.
func NewSMTPMailer(cfg SMTPConfig, logger zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger.With().Str("component", "smtp_mailer").Logger(),
	}
}

func (m *SMTPMailer) Send(ctx context.Context, message MailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(message.To) == "" {
		return fmt.Errorf("mail recipient is required")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", message.To)
	msg.SetHeader("Subject", message.Subject)
	msg.SetBody("text/plain", message.Body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	m.logger.Info().Str("to", maskEmailAddress(message.To)).Str("subject", message.Subject).Msg("mail sent")
	return nil
}

// logMailerHistory bounds how many recent messages LogMailer keeps for Sent.
const logMailerHistory = 50

// LogMailer only logs outgoing messages. Used in development and tests.
type LogMailer struct {
	logger zerolog.Logger
	mu     sync.Mutex
	sent   []MailMessage
}

// NewLogMailer constructs a logging mailer.
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("component", "log_mailer").Logger()}
}

func (l *LogMailer) Send(_ context.Context, message MailMessage) error {
	l.mu.Lock()
	l.sent = append(l.sent, message)
	if len(l.sent) > logMailerHistory {
		l.sent = append(l.sent[:0], l.sent[len(l.sent)-logMailerHistory:]...)
	}
	l.mu.Unlock()
	l.logger.Info().Str("to", maskEmailAddress(message.To)).Str("subject", message.Subject).Msg("mail delivered to log")
	return nil
}

// Sent returns a copy of the most recent messages, oldest first.
func (l *LogMailer) Sent() []MailMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]MailMessage(nil), l.sent...)
}
