package mailer

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/codecom/codecom-api/pkg/errors"
)

// ErrNotConfigured is returned by NewSMTPClient when credentials are absent
var ErrNotConfigured = fmt.Errorf("mail relay credentials missing: %w", apperrors.ErrNotConfigured)

// Attachment is a file sent along with a message
type Attachment struct {
	Filename    string
	Content     []byte
	ContentType string
}

// Message is the envelope plus content of one notification email
type Message struct {
	FromName    string
	FromAddress string
	To          string
	Subject     string
	HTML        string
	ReplyTo     string
	Attachments []Attachment
}

// Sender relays messages to an outbound mail provider.
// Implementations make a single delivery attempt per Send.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
	// Verify checks connectivity and credentials without sending
	Verify(ctx context.Context) error
}

// Config holds relay connection settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

const (
	defaultHost    = "smtp.gmail.com"
	defaultPort    = 587
	defaultTimeout = 30 * time.Second
	implicitTLS    = 465
)

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = defaultHost
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}
