package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"
)

// SMTPConfig describes the relay used for outbound mail.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	StartTLS    bool
	SenderEmail string
	SenderName  string
	Timeout     time.Duration
}

// SMTPMailer delivers messages through an SMTP relay, one connection per message.
type SMTPMailer struct {
	cfg    SMTPConfig
	dialer net.Dialer
}

// NewSMTPMailer validates cfg and returns a mailer.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("notify: smtp host is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if _, err := mail.ParseAddress(cfg.SenderEmail); err != nil {
		return nil, fmt.Errorf("notify: invalid sender address %q: %w", cfg.SenderEmail, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPMailer{cfg: cfg, dialer: net.Dialer{Timeout: cfg.Timeout}}, nil
}

// Send delivers msg. The context bounds dialing and the whole SMTP exchange.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) (err error) {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	conn, err := m.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("notify: dial %s: %w", addr, err)
	}

	deadline := time.Now().Add(m.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("notify: smtp handshake: %w", err)
	}
	defer func() {
		if err != nil {
			_ = client.Close()
		}
	}()

	if m.cfg.StartTLS {
		if err = client.StartTLS(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("notify: starttls: %w", err)
		}
	}
	if m.cfg.Username != "" {
		if err = client.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			return fmt.Errorf("notify: smtp auth: %w", err)
		}
	}

	if err = client.Mail(m.cfg.SenderEmail); err != nil {
		return fmt.Errorf("notify: MAIL FROM: %w", err)
	}
	if err = client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("notify: RCPT TO %s: %w", msg.To, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("notify: DATA: %w", err)
	}
	if _, err = w.Write(m.compose(msg)); err != nil {
		_ = w.Close()
		return fmt.Errorf("notify: write body: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("notify: finish body: %w", err)
	}
	if err = client.Quit(); err != nil {
		return fmt.Errorf("notify: QUIT: %w", err)
	}
	return nil
}

func (m *SMTPMailer) compose(msg Message) []byte {
	from := mail.Address{Name: m.cfg.SenderName, Address: m.cfg.SenderEmail}
	to := mail.Address{Name: msg.ToName, Address: msg.To}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from.String())
	fmt.Fprintf(&buf, "To: %s\r\n", to.String())
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(msg.HTMLBody)
	return buf.Bytes()
}
