package report

import (
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/mhan/momo/pkg/config"
	"github.com/mhan/momo/pkg/logger"
)

// Mailer delivers the rendered report over SMTP. The connection
// upgrades to TLS when the server advertises STARTTLS.
type Mailer struct {
	cfg    config.SMTPConfig
	logger *logger.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailer creates a new Mailer instance
func NewMailer(cfg config.SMTPConfig, log *logger.Logger) *Mailer {
	return &Mailer{
		cfg:    cfg,
		logger: log.WithComponent("mailer"),
		send:   smtp.SendMail,
	}
}

// Enabled reports whether delivery is configured on
func (m *Mailer) Enabled() bool {
	return m.cfg.Enabled
}

// Send delivers one HTML mail to the configured recipients. A no-op
// when delivery is disabled.
func (m *Mailer) Send(subject string, html []byte) error {
	if !m.cfg.Enabled {
		m.logger.Debug("Mail delivery disabled, skipping")
		return nil
	}

	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	msg := buildMessage(m.cfg.From, m.cfg.To, subject, html)
	if err := m.send(addr, auth, m.cfg.From, m.cfg.To, msg); err != nil {
		return fmt.Errorf("send report mail: %w", err)
	}

	m.logger.WithFields(map[string]interface{}{
		"recipients": len(m.cfg.To),
		"subject":    subject,
	}).Info("Report mailed")
	return nil
}

// buildMessage assembles an HTML mail with CRLF header endings
func buildMessage(from string, to []string, subject string, html []byte) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.Write(html)
	return []byte(b.String())
}
