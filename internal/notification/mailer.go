package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/imsulglobal/community-portal/internal/capacity"
	"github.com/imsulglobal/community-portal/internal/config"
)

// SMTPMailer sends plain-text mail over SMTP.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

// NewMailer returns an SMTP mailer, or a log-only mailer when no SMTP host
// is configured (local development).
func NewMailer(cfg config.SMTPConfig, log *zap.Logger) Mailer {
	if cfg.Host == "" {
		return &logMailer{log: log}
	}
	return &SMTPMailer{cfg: cfg}
}

// Send renders the template for the intent's kind and delivers it.
func (m *SMTPMailer) Send(_ context.Context, intent Intent) error {
	subject, body, err := render(intent)
	if err != nil {
		return err
	}

	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.From)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		from, intent.Recipient, subject, body)

	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	return smtp.SendMail(addr, auth, m.cfg.From, []string{intent.Recipient}, []byte(msg))
}

func render(intent Intent) (subject, body string, err error) {
	switch intent.Kind {
	case capacity.MailReceived:
		subject = fmt.Sprintf("Application received - %s", intent.Offering)
		body = fmt.Sprintf(`Hello %s,

We received your application for "%s"!
%s
Our team will review it and get back to you soon.

Thank you for your interest in being part of our community.

Warm regards,
Instituto Sul Global
`, intent.Name, intent.Offering, detailLines(intent.Details))
	case capacity.MailAccepted:
		subject = fmt.Sprintf("Congratulations! Application accepted - %s", intent.Offering)
		body = fmt.Sprintf(`Hello %s,

We are happy to let you know that your application for "%s" was accepted!

We will be in touch soon with the next steps. Welcome aboard!

Warm regards,
Instituto Sul Global
`, intent.Name, intent.Offering)
	case capacity.MailRejected:
		subject = fmt.Sprintf("Update on your application - %s", intent.Offering)
		body = fmt.Sprintf(`Hello %s,

Thank you for your interest in "%s".

Unfortunately we are unable to move forward with your application at this
time. We encourage you to apply for other open opportunities.

Warm regards,
Instituto Sul Global
`, intent.Name, intent.Offering)
	default:
		return "", "", fmt.Errorf("unknown mail kind %q", intent.Kind)
	}
	return subject, body, nil
}

// detailLines renders the optional detail block, keys sorted for stable
// output.
func detailLines(details map[string]string) string {
	if len(details) == 0 {
		return ""
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, details[k])
	}
	return b.String()
}

// logMailer records intents instead of delivering them.
type logMailer struct {
	log *zap.Logger
}

func (m *logMailer) Send(_ context.Context, intent Intent) error {
	m.log.Info("mail (smtp disabled)",
		zap.String("to", intent.Recipient),
		zap.String("kind", string(intent.Kind)),
		zap.String("offering", intent.Offering),
	)
	return nil
}
