package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrSMTPHostPortRequired = errors.New("smtp host and port are required")
	ErrSMTPNoRecipients     = errors.New("no recipients provided")
	ErrSMTPNoSender         = errors.New("no sender provided")
	ErrSMTPHeaderInjection  = errors.New("header value contains a line break")
)

// SMTP is a Mail implementation backed by net/smtp. Unlike smtp.SendMail it
// honors ctx: cancellation closes the connection mid-conversation.
type SMTP struct {
	addr        string
	host        string
	defaultFrom string
	auth        smtp.Auth
	now         func() time.Time
}

// SMTPConfig configures the SMTP implementation.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the sender when Message.From is empty.
	From string
}

// NewSMTP constructs an SMTP mail sender. PLAIN auth is used when a username
// and password are both set.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, ErrSMTPHostPortRequired
	}

	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTP{
		addr:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		host:        cfg.Host,
		defaultFrom: cfg.From,
		auth:        auth,
		now:         time.Now,
	}, nil
}

// Send delivers msg over SMTP, upgrading to TLS when the server offers STARTTLS.
func (s *SMTP) Send(ctx context.Context, msg Message) (err error) {
	from := msg.From
	if from == "" {
		from = s.defaultFrom
	}

	raw, err := compose(from, msg, s.now())
	if err != nil {
		return err
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
			err = ctxErr
		}
	}()

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if s.auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(s.auth); err != nil {
				return err
			}
		}
	}

	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range msg.To {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return c.Quit()
}

// Close implements io.Closer; connections are per message.
func (s *SMTP) Close() error {
	return nil
}

// compose renders the RFC 5322 message with CRLF line endings.
func compose(from string, msg Message, now time.Time) ([]byte, error) {
	if len(msg.To) == 0 {
		return nil, ErrSMTPNoRecipients
	}
	if from == "" {
		return nil, ErrSMTPNoSender
	}
	for _, v := range append([]string{from, msg.Subject}, msg.To...) {
		if strings.ContainsAny(v, "\r\n") {
			return nil, ErrSMTPHeaderInjection
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&sb, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&sb, "Date: %s\r\n", now.Format(time.RFC1123Z))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))

	return []byte(sb.String()), nil
}
