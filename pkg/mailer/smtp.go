package mailer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/codecom/codecom-api/pkg/logger"
	"github.com/codecom/codecom-api/pkg/metrics"
	"github.com/codecom/codecom-api/pkg/tracing"
	"github.com/wneessen/go-mail"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SMTPClient relays mail through an authenticated SMTP server.
// It holds only immutable settings and dials per call, so one instance
// can be shared by concurrent requests.
type SMTPClient struct {
	cfg     Config
	options []mail.Option
}

// NewSMTPClient builds the relay from credentials. It does not dial.
func NewSMTPClient(cfg Config) (*SMTPClient, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, ErrNotConfigured
	}
	cfg = cfg.withDefaults()

	options := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Port == implicitTLS {
		options = append(options, mail.WithSSLPort(false))
	} else {
		options = append(options, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	// Fail fast on option errors instead of on the first submission
	if _, err := mail.NewClient(cfg.Host, options...); err != nil {
		return nil, fmt.Errorf("invalid SMTP relay settings: %w", err)
	}

	logger.Info("SMTP relay client initialized",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("account", cfg.Username),
	)

	return &SMTPClient{cfg: cfg, options: options}, nil
}

// Account returns the authenticated account, which is also the sender address
func (s *SMTPClient) Account() string {
	return s.cfg.Username
}

// Send delivers msg in a single attempt
func (s *SMTPClient) Send(ctx context.Context, msg *Message) (err error) {
	start := time.Now()
	operation := "send"

	ctx, span := tracing.StartSpan(ctx, "mailer.Send",
		attribute.String("smtp.host", s.cfg.Host),
		attribute.Int("mail.attachments", len(msg.Attachments)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	m, err := buildMsg(msg)
	if err != nil {
		s.record(ctx, operation, start, err)
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.options...)
	if err != nil {
		err = fmt.Errorf("failed to create SMTP client: %w", err)
		s.record(ctx, operation, start, err)
		return err
	}

	if err = client.DialAndSendWithContext(ctx, m); err != nil {
		err = fmt.Errorf("failed to send mail via %s: %w", s.cfg.Host, err)
		s.record(ctx, operation, start, err, zap.String("subject", msg.Subject))
		return err
	}

	s.record(ctx, operation, start, nil,
		zap.String("subject", msg.Subject),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}

// Verify dials and authenticates against the relay, then disconnects
func (s *SMTPClient) Verify(ctx context.Context) (err error) {
	start := time.Now()
	operation := "verify"

	ctx, span := tracing.StartSpan(ctx, "mailer.Verify", attribute.String("smtp.host", s.cfg.Host))
	defer func() { tracing.EndSpan(span, err) }()

	client, err := mail.NewClient(s.cfg.Host, s.options...)
	if err != nil {
		err = fmt.Errorf("failed to create SMTP client: %w", err)
		s.record(ctx, operation, start, err)
		return err
	}

	if err = client.DialWithContext(ctx); err != nil {
		err = fmt.Errorf("failed to connect to %s: %w", s.cfg.Host, err)
		s.record(ctx, operation, start, err)
		return err
	}
	if closeErr := client.Close(); closeErr != nil {
		logger.Debug("SMTP close after verify failed", zap.Error(closeErr))
	}

	s.record(ctx, operation, start, nil)
	return nil
}

func (s *SMTPClient) record(ctx context.Context, operation string, start time.Time, err error, fields ...zap.Field) {
	duration := metrics.MeasureDuration(start)
	status := "success"
	if err != nil {
		status = "error"
		fields = append(fields, zap.Error(err))
	}
	metrics.MailRelayDuration.WithLabelValues(operation, status).Observe(duration)
	metrics.MailRelayTotal.WithLabelValues(operation, status).Inc()
	logger.LogAPICall(ctx, "smtp_relay", operation, status, duration, fields...)
}

// buildMsg converts a Message into a go-mail message
func buildMsg(msg *Message) (*mail.Msg, error) {
	m := mail.NewMsg()

	if err := m.FromFormat(msg.FromName, msg.FromAddress); err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", msg.FromAddress, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	if msg.ReplyTo != "" {
		// Submitter-provided; a bad address should not block the notification
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			logger.Warn("Ignoring invalid reply-to address",
				zap.String("reply_to", msg.ReplyTo),
				zap.Error(err))
		}
	}

	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	for _, a := range msg.Attachments {
		opts := []mail.FileOption{}
		if a.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(a.ContentType)))
		}
		if err := m.AttachReader(a.Filename, bytes.NewReader(a.Content), opts...); err != nil {
			return nil, fmt.Errorf("failed to attach %q: %w", a.Filename, err)
		}
	}

	return m, nil
}
