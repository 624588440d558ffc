package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// SMTPStage submits through an authenticated SMTP server. Secure "ssl" dials
// implicit TLS (SMTPS, usually port 465); anything else requires STARTTLS.
type SMTPStage struct {
	host     string
	port     int
	username string
	password string
	secure   string
	timeout  time.Duration
}

// NewSMTPStage creates an authenticated submission stage.
func NewSMTPStage(host string, port int, username, password, secure string, timeout time.Duration) *SMTPStage {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SMTPStage{
		host:     host,
		port:     port,
		username: username,
		password: password,
		secure:   secure,
		timeout:  timeout,
	}
}

func (s *SMTPStage) Name() string { return "smtp" }

func (s *SMTPStage) Deliver(ctx context.Context, msg *Message) error {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	tlsCfg := &tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}
	dialer := &net.Dialer{Timeout: s.timeout}

	var conn net.Conn
	var err error
	if s.secure == "ssl" {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsCfg}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("SMTP connect to %s: %w", addr, err)
	}
	conn.SetDeadline(time.Now().Add(s.timeout))

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("SMTP client: %w", err)
	}
	defer c.Close()

	if s.secure != "ssl" {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return errors.New("SMTP server does not offer STARTTLS")
		}
		if err := c.StartTLS(tlsCfg); err != nil {
			return fmt.Errorf("STARTTLS: %w", err)
		}
	}

	if s.username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
			return fmt.Errorf("AUTH: %w", err)
		}
	}

	return transmit(c, msg)
}

// LocalStage hands the message to an unauthenticated local MTA. It is the
// last resort of the chain and does not negotiate TLS.
type LocalStage struct {
	addr    string
	timeout time.Duration
}

// NewLocalStage creates a local submission stage, e.g. for "localhost:25".
func NewLocalStage(addr string, timeout time.Duration) *LocalStage {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &LocalStage{addr: addr, timeout: timeout}
}

func (s *LocalStage) Name() string { return "local" }

func (s *LocalStage) Deliver(ctx context.Context, msg *Message) error {
	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("SMTP connect to %s: %w", s.addr, err)
	}
	conn.SetDeadline(time.Now().Add(s.timeout))

	host, _, _ := net.SplitHostPort(s.addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("SMTP client: %w", err)
	}
	defer c.Close()

	return transmit(c, msg)
}

func transmit(c *smtp.Client, msg *Message) error {
	body, _ := msg.MIME()

	if err := c.Mail(msg.FromEmail); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("RCPT TO: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("DATA close: %w", err)
	}
	return c.Quit()
}
