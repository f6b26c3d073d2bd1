// Package mail provides outbound email dispatch.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/tasknest/tasknest-api/internal/config"
	"github.com/tasknest/tasknest-api/internal/platform/logger"
)

// Message is a single outbound email.
type Message struct {
	To       string
	Subject  string
	Template string
	// Data holds template variables (e.g. "url", "task_title", "due_date").
	Data map[string]string
}

// Mailer defines the interface for sending mail. From the callers' point of
// view a send is fire-and-forget; failures come back as errors the caller
// decides how to handle.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer implements Mailer over plain SMTP with optional AUTH.
type SMTPMailer struct {
	addr        string
	auth        smtp.Auth
	fromAddress string
	fromName    string
}

// NewSMTPMailer creates an SMTPMailer from mail configuration.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTPMailer{
		addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth:        auth,
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
	}
}

// Send renders the message body and delivers it via SMTP.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	log := logger.FromContext(ctx)

	var body bytes.Buffer
	fmt.Fprintf(&body, "From: %s <%s>\r\n", m.fromName, m.fromAddress)
	fmt.Fprintf(&body, "To: %s\r\n", msg.To)
	fmt.Fprintf(&body, "Subject: %s\r\n", msg.Subject)
	body.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	body.WriteString(renderTemplate(msg.Template, msg.Data))

	if err := smtp.SendMail(m.addr, m.auth, m.fromAddress, []string{msg.To}, body.Bytes()); err != nil {
		log.Error("failed to send mail",
			"error", err,
			"template", msg.Template,
			"recipient", msg.To)
		return fmt.Errorf("failed to send %s mail: %w", msg.Template, err)
	}

	log.Debug("mail sent",
		"template", msg.Template,
		"recipient", msg.To)

	return nil
}

// renderTemplate produces the plain-text body for a known template name.
// Unknown templates fall back to a key/value dump so no send is silently
// empty.
func renderTemplate(name string, data map[string]string) string {
	switch name {
	case TemplateEmailVerification:
		return fmt.Sprintf(
			"Hi,\n\nPlease verify your email address by opening the link below:\n\n%s\n\nThe link expires in 30 minutes.\n",
			data["url"],
		)
	case TemplatePasswordReset:
		return fmt.Sprintf(
			"Hi,\n\nA password reset was requested for your account. Open the link below to choose a new password:\n\n%s\n\nIf you did not request this, you can ignore this mail.\n",
			data["url"],
		)
	case TemplateDueTaskReminder:
		return fmt.Sprintf(
			"Hi,\n\nYour task %q is due on %s.\n",
			data["task_title"],
			data["due_date"],
		)
	default:
		var sb strings.Builder
		for k, v := range data {
			fmt.Fprintf(&sb, "%s: %s\n", k, v)
		}
		return sb.String()
	}
}

// Known mail template names.
const (
	TemplateEmailVerification = "email-verification"
	TemplatePasswordReset     = "password-reset"
	TemplateDueTaskReminder   = "due-task-reminder"
)
