package smtp

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/estore-auth/internal/config"
	"github.com/sirupsen/logrus"
)

// Mailer sends emails.
type Mailer interface {
	SendEmail(to, subject, htmlBody string) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewMailer(cfg config.SMTPConfig) Mailer {
	return &mailer{
		host:     cfg.Host,
		port:     cfg.Port,
		from:     cfg.From,
		username: cfg.Username,
		password: cfg.Password,
	}
}

func (m *mailer) SendEmail(to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, buildMessage(m.from, to, subject, htmlBody)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

// logMailer writes messages to the log instead of delivering them.
type logMailer struct {
	log logrus.FieldLogger
}

// NewLogMailer returns a Mailer for development setups without an SMTP server.
func NewLogMailer(log logrus.FieldLogger) Mailer {
	return &logMailer{log: log}
}

func (m *logMailer) SendEmail(to, subject, htmlBody string) error {
	m.log.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
		"bytes":   len(htmlBody),
	}).Info("email not sent: no SMTP host configured")
	m.log.WithField("to", to).Debug(htmlBody)
	return nil
}
