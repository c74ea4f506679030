package mailer

import (
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
)

// Config holds the SMTP settings used for outgoing mail.
type Config struct {
	Host        string
	Port        string
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// Message is a single outgoing email.
type Message struct {
	To      []string
	Subject string
	Body    string
	IsHTML  bool
}

// Mailer sends emails via SMTP. With no host configured it logs messages
// instead of sending them.
type Mailer struct {
	cfg    *Config
	sendFn func(Message) error
}

func New(cfg *Config) *Mailer {
	if cfg == nil {
		cfg = &Config{}
	}
	m := &Mailer{cfg: cfg}
	m.sendFn = m.sendSMTP
	return m
}

func (m *Mailer) send(msg Message) error {
	return m.sendFn(msg)
}

func (m *Mailer) sendSMTP(msg Message) error {
	if m.cfg.Host == "" {
		slog.Info("mailer: smtp not configured, message not sent", "to", msg.To, "subject", msg.Subject)
		return nil
	}

	port := m.cfg.Port
	if port == "" {
		port = "587"
	}
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := net.JoinHostPort(m.cfg.Host, port)
	if err := smtp.SendMail(addr, auth, m.cfg.FromAddress, msg.To, []byte(m.formatMessage(msg))); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}

func (m *Mailer) formatMessage(msg Message) string {
	contentType := "text/plain; charset=UTF-8"
	if msg.IsHTML {
		contentType = "text/html; charset=UTF-8"
	}

	from := m.cfg.FromAddress
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.FromAddress)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", headerValue(from))
	fmt.Fprintf(&b, "To: %s\r\n", headerValue(strings.Join(msg.To, ", ")))
	fmt.Fprintf(&b, "Subject: %s\r\n", headerValue(msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return b.String()
}

// headerValue folds line breaks into spaces so user-supplied text cannot
// start a new header.
func headerValue(v string) string {
	return strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(v)
}
