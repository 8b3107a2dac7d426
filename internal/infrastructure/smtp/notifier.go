package smtp

import (
	"context"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"TestVaultAlerts/internal/domain"
	"TestVaultAlerts/internal/ports"
)

// Config carries everything needed to submit one message.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	To       string
}

// Notifier submits plaintext alerts over implicit TLS (SMTPS).
type Notifier struct {
	cfg    Config
	dial   mail.DialContextFunc
	now    func() time.Time
	logger *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier validates both addresses before anything is sent. The sender is the SMTP username;
// an empty recipient falls back to the sender.
func NewNotifier(cfg Config, logger *slog.Logger) (*Notifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.To == "" {
		cfg.To = cfg.Username
	}
	if err := ValidateAddress("sender", cfg.Username); err != nil {
		return nil, err
	}
	if err := ValidateAddress("recipient", cfg.To); err != nil {
		return nil, err
	}
	if cfg.Host == "" || cfg.Port <= 0 {
		return nil, fmt.Errorf("smtp host/port: %w", domain.ErrMissingConfig)
	}

	return &Notifier{cfg: cfg, now: time.Now, logger: logger}, nil
}

// ValidateAddress rejects anything that is not a single bare RFC 5322 address.
func ValidateAddress(role, addr string) error {
	parsed, err := netmail.ParseAddress(addr)
	if err != nil {
		return fmt.Errorf("%s %q: %w", role, addr, domain.ErrInvalidAddress)
	}
	if parsed.Address != strings.TrimSpace(addr) {
		return fmt.Errorf("%s %q: expected a bare address: %w", role, addr, domain.ErrInvalidAddress)
	}
	return nil
}

// Send delivers one message. Connection and authentication failures are returned without retry.
func (n *Notifier) Send(ctx context.Context, subject, body string) error {
	msg, err := n.newMessage(subject, body)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.cfg.Username),
		mail.WithPassword(n.cfg.Password),
		mail.WithTimeout(30 * time.Second),
	}
	if n.dial != nil {
		opts = append(opts, mail.WithDialContextFunc(n.dial))
	}
	client, err := mail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp %s:%d: %w", n.cfg.Host, n.cfg.Port, err)
	}

	n.logger.Info("alert sent", "to", n.cfg.To, "subject", subject)
	return nil
}

func (n *Notifier) newMessage(subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.Username); err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	if err := msg.To(n.cfg.To); err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetDateWithValue(n.now())
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}
