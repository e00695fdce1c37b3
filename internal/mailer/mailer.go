// Package mailer sends transactional email. Delivery is best effort: the
// callers log failures and move on.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"trueheal-portal/internal/logging"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
	HTML    bool
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// DefaultTimeout bounds one SMTP exchange when the caller sets no deadline.
const DefaultTimeout = 30 * time.Second

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPMailer sends through an authenticated SMTP relay.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer validates cfg and returns a mailer.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.Port == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("smtp not configured")
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	m := &SMTPMailer{cfg: cfg}
	m.send = m.sendMail
	return m, nil
}

// Send implements Mailer.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := m.send(ctx, addr, auth, m.cfg.From, []string{msg.To}, compose(m.cfg.From, msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// sendMail is smtp.SendMail with the dial and every read and write bounded
// by the earlier of the ctx deadline and cfg.Timeout.
func (m *SMTPMailer) sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	deadline := time.Now().Add(m.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := conn.SetDeadline(deadline); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return fmt.Errorf("smtp: server doesn't support AUTH")
		}
		if err := c.Auth(a); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func compose(from string, msg Message) []byte {
	contentType := "text/plain"
	if msg.HTML {
		contentType = "text/html"
	}
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: " + contentType + "; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// LogMailer writes messages to the log instead of sending them. It is the
// development transport. Bodies carry codes and reset links, so they are
// only logged at debug level.
type LogMailer struct {
	log *logging.Logger
}

// NewLogMailer returns a LogMailer.
func NewLogMailer(log *logging.Logger) *LogMailer {
	return &LogMailer{log: log}
}

// Send implements Mailer.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.log.Info("email (not sent)", "to", msg.To, "subject", msg.Subject, "body_bytes", len(msg.Body))
	m.log.Debug("email body", "to", msg.To, "body", msg.Body)
	return nil
}
