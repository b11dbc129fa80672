package notification

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// DefaultSMTPTimeout bounds one whole SMTP session once connected.
const DefaultSMTPTimeout = 30 * time.Second

type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Sender   string        `mapstructure:"sender"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Configured reports whether enough settings are present to reach a server.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.Port > 0 && c.Sender != "" && c.Password != ""
}

type smtpEmailService struct {
	cfg    SMTPConfig
	dialer *net.Dialer
}

// NewSMTPEmailService returns nil when cfg is incomplete so callers can treat
// the channel as not configured.
func NewSMTPEmailService(cfg SMTPConfig) EmailService {
	if !cfg.Configured() {
		return nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSMTPTimeout
	}
	return &smtpEmailService{
		cfg:    cfg,
		dialer: &net.Dialer{Timeout: cfg.Timeout},
	}
}

func (s *smtpEmailService) SendText(ctx context.Context, to, subject, body string) error {
	return s.sendMail(ctx, to, subject, "text/plain", body)
}

func (s *smtpEmailService) SendHTML(ctx context.Context, to, subject, body string) error {
	return s.sendMail(ctx, to, subject, "text/html", body)
}

// sendMail honours ctx only while connecting. Once the session is open it runs
// to completion or to the I/O deadline, so the result always reflects whether
// the server accepted the message.
func (s *smtpEmailService) sendMail(ctx context.Context, to, subject, contentType, body string) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if err = conn.SetDeadline(time.Now().Add(s.cfg.Timeout)); err != nil {
		_ = conn.Close()
		return err
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp greeting: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err = c.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if ok, _ := c.Extension("AUTH"); ok {
		if err = c.Auth(smtp.PlainAuth("", s.cfg.Sender, s.cfg.Password, s.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err = c.Mail(s.cfg.Sender); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err = c.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err = w.Write(buildMessage(s.cfg.Sender, to, subject, contentType, body, time.Now())); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}
	// accepted by the server, a failed QUIT does not undo delivery
	_ = c.Quit()
	return nil
}

// headerValue keeps a value on a single header line.
func headerValue(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

func buildMessage(from, to, subject, contentType, body string, at time.Time) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", headerValue(from))
	fmt.Fprintf(&sb, "To: %s\r\n", headerValue(to))
	fmt.Fprintf(&sb, "Subject: %s\r\n", headerValue(subject))
	fmt.Fprintf(&sb, "Date: %s\r\n", at.Format(time.RFC1123Z))
	sb.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&sb, "Content-Type: %s; charset=UTF-8\r\n", contentType)
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(sb.String())
}
