package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/resolution-engine/internal/config"
)

// SMTPMailer sends notices over plain SMTP with STARTTLS, matching the
// mail setup the upstream support system already uses.
type SMTPMailer struct {
	cfg    config.NotificationConfig
	logger *zap.Logger
}

// NewSMTPMailer constructs the mailer.
func NewSMTPMailer(cfg config.NotificationConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// Deliver sends one notice. Errors are retriable: nothing is persisted here.
func (m *SMTPMailer) Deliver(ctx context.Context, notice Notice) error {
	if strings.TrimSpace(notice.To) == "" {
		return errors.New("notice has no recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.cfg.EmailFrom, notice.To, notice.Subject, notice.Body)

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	var auth smtp.Auth
	if m.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.EmailFrom, []string{notice.To}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	m.logger.Debug("notice delivered",
		zap.String("ticket_id", notice.TicketID),
		zap.String("to", notice.To))
	return nil
}

// LogMailer logs notices instead of sending them. Stands in for SMTP in
// development and tests.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer constructs the stand-in mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Deliver logs the notice and always succeeds.
func (m *LogMailer) Deliver(ctx context.Context, notice Notice) error {
	m.logger.Info("notice (log mailer)",
		zap.String("ticket_id", notice.TicketID),
		zap.String("to", notice.To),
		zap.String("subject", notice.Subject))
	return nil
}
