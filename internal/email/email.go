package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/attendance-management/internal"
)

var ErrNoRecipient = errors.New("email has no recipient")

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Result struct {
	Success   bool
	MessageID string
}

type Sender interface {
	Send(ctx context.Context, msg Message) (Result, error)
}

// New returns an SMTP sender when email is enabled and a host is set, otherwise a sender
// that only logs.
func New(cfg internal.EmailConfig, logger *slog.Logger) Sender {
	if !cfg.Enabled || cfg.Host == "" {
		return NewLogSender(logger)
	}
	return &smtpSender{cfg: cfg, logger: logger}
}

type logSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) Sender {
	return &logSender{logger: logger}
}

func (l *logSender) Send(ctx context.Context, msg Message) (Result, error) {
	if strings.TrimSpace(msg.To) == "" {
		return Result{}, ErrNoRecipient
	}
	id := messageID("localhost")
	l.logger.Info("email delivery disabled, message logged",
		"to", msg.To,
		"subject", msg.Subject,
		"message_id", id)
	return Result{Success: true, MessageID: id}, nil
}

type smtpSender struct {
	cfg    internal.EmailConfig
	logger *slog.Logger
}

func (s *smtpSender) Send(ctx context.Context, msg Message) (Result, error) {
	if strings.TrimSpace(msg.To) == "" {
		return Result{}, ErrNoRecipient
	}

	id := messageID(s.cfg.Host)
	raw := buildMessage(s.cfg.From, id, msg)
	if err := s.deliver(ctx, msg.To, raw); err != nil {
		s.logger.Error("email delivery failed", "error", err, "to", msg.To, "subject", msg.Subject)
		return Result{}, fmt.Errorf("send email: %w", err)
	}

	s.logger.Info("email sent", "to", msg.To, "subject", msg.Subject, "message_id", id)
	return Result{Success: true, MessageID: id}, nil
}

func (s *smtpSender) deliver(ctx context.Context, to string, raw []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.cfg.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return err
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(addressOnly(s.cfg.From)); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func messageID(host string) string {
	return fmt.Sprintf("<%s@%s>", uuid.New().String(), host)
}

// addressOnly strips a display name: "Attendance <noreply@x>" becomes "noreply@x".
func addressOnly(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.LastIndex(from, ">"); j > i {
			return from[i+1 : j]
		}
	}
	return strings.TrimSpace(from)
}

// buildMessage renders a multipart/alternative message when both bodies are present.
func buildMessage(from, id string, msg Message) []byte {
	headers := []string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", msg.To),
		fmt.Sprintf("Subject: %s", msg.Subject),
		fmt.Sprintf("Message-ID: %s", id),
		"MIME-Version: 1.0",
	}

	var body strings.Builder
	switch {
	case msg.HTML != "" && msg.Text != "":
		boundary := "alt-" + strings.ReplaceAll(uuid.New().String(), "-", "")
		headers = append(headers, fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q", boundary))
		fmt.Fprintf(&body, "--%s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s\r\n", boundary, msg.Text)
		fmt.Fprintf(&body, "--%s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s\r\n", boundary, msg.HTML)
		fmt.Fprintf(&body, "--%s--\r\n", boundary)
	case msg.HTML != "":
		headers = append(headers, "Content-Type: text/html; charset=\"UTF-8\"")
		body.WriteString(msg.HTML)
	default:
		headers = append(headers, "Content-Type: text/plain; charset=\"UTF-8\"")
		body.WriteString(msg.Text)
	}

	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body.String())
}
