package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultSendTimeout = 30 * time.Second

// Config holds the outbound mail settings. Credentials only ever come from
// configuration.
type Config struct {
	SenderAddress string
	Credential    string
	RelayHost     string
	RelayPort     int
	// Recipient defaults to SenderAddress.
	Recipient string
	Timeout   time.Duration
}

// DeliveryError wraps any failure to hand a message to the relay.
type DeliveryError struct {
	Stage string
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivering notification: %s: %v", e.Stage, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

type SMTPNotifier struct {
	cfg    Config
	logger *zap.Logger
}

func NewSMTPNotifier(cfg Config, logger *zap.Logger) (*SMTPNotifier, error) {
	if cfg.SenderAddress == "" {
		return nil, errors.New("smtp sender address not set")
	}
	if cfg.RelayHost == "" {
		return nil, errors.New("smtp relay host not set")
	}
	if cfg.RelayPort <= 0 {
		return nil, errors.New("smtp relay port not set")
	}
	if cfg.Recipient == "" {
		cfg.Recipient = cfg.SenderAddress
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSendTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPNotifier{cfg: cfg, logger: logger}, nil
}

// Notify sends one message over a fresh connection to the relay. STARTTLS is
// used when the relay offers it; PLAIN auth when a credential is configured.
func (n *SMTPNotifier) Notify(ctx context.Context, subject, body string) error {
	addr := net.JoinHostPort(n.cfg.RelayHost, strconv.Itoa(n.cfg.RelayPort))

	d := net.Dialer{Timeout: n.cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return &DeliveryError{Stage: "connect", Err: err}
	}
	if err := conn.SetDeadline(time.Now().Add(n.cfg.Timeout)); err != nil {
		conn.Close()
		return &DeliveryError{Stage: "connect", Err: err}
	}

	c, err := smtp.NewClient(conn, n.cfg.RelayHost)
	if err != nil {
		conn.Close()
		return &DeliveryError{Stage: "greeting", Err: err}
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: n.cfg.RelayHost}); err != nil {
			return &DeliveryError{Stage: "starttls", Err: err}
		}
	}
	if n.cfg.Credential != "" {
		auth := smtp.PlainAuth("", n.cfg.SenderAddress, n.cfg.Credential, n.cfg.RelayHost)
		if err := c.Auth(auth); err != nil {
			return &DeliveryError{Stage: "auth", Err: err}
		}
	}

	if err := c.Mail(n.cfg.SenderAddress); err != nil {
		return &DeliveryError{Stage: "mail from", Err: err}
	}
	if err := c.Rcpt(n.cfg.Recipient); err != nil {
		return &DeliveryError{Stage: "rcpt to", Err: err}
	}
	w, err := c.Data()
	if err != nil {
		return &DeliveryError{Stage: "data", Err: err}
	}
	if _, err := w.Write(n.message(subject, body)); err != nil {
		w.Close()
		return &DeliveryError{Stage: "data", Err: err}
	}
	if err := w.Close(); err != nil {
		return &DeliveryError{Stage: "data", Err: err}
	}
	if err := c.Quit(); err != nil {
		n.logger.Debug("smtp quit failed", zap.Error(err))
	}

	n.logger.Info("notification sent", zap.String("subject", subject), zap.String("to", n.cfg.Recipient))
	return nil
}

func (n *SMTPNotifier) message(subject, body string) []byte {
	var sb strings.Builder
	sb.WriteString("From: " + n.cfg.SenderAddress + "\r\n")
	sb.WriteString("To: " + n.cfg.Recipient + "\r\n")
	sb.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(sb.String())
}
