package services

import (
	"context"
	"fmt"

	"github.com/codecom/codecom-api/config"
	"github.com/codecom/codecom-api/internal/models"
	"github.com/codecom/codecom-api/internal/render"
	"github.com/codecom/codecom-api/internal/validation"
	apperrors "github.com/codecom/codecom-api/pkg/errors"
	"github.com/codecom/codecom-api/pkg/logger"
	"github.com/codecom/codecom-api/pkg/mailer"
	"github.com/codecom/codecom-api/pkg/metrics"
	"github.com/codecom/codecom-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	applicationSenderName = "CodeCom Careers"
	feedbackSenderName    = "CodeCom Feedback"
)

// RelayStatusInvalidator drops a cached relay health result
type RelayStatusInvalidator interface {
	Invalidate()
}

// SubmissionService validates form submissions, renders them into an HTML
// email and relays it to the team inbox
type SubmissionService struct {
	sender      mailer.Sender
	renderer    *render.Renderer
	mail        config.MailConfig
	relayStatus RelayStatusInvalidator
}

// NewSubmissionService creates a new submission service instance.
// A nil sender leaves the service unconfigured. relayStatus may be nil; when
// set it is invalidated after a failed send so the next health check verifies again.
func NewSubmissionService(
	sender mailer.Sender,
	renderer *render.Renderer,
	cfg *config.Config,
	relayStatus RelayStatusInvalidator,
) *SubmissionService {
	return &SubmissionService{
		sender:      sender,
		renderer:    renderer,
		mail:        cfg.Mail,
		relayStatus: relayStatus,
	}
}

// Configured reports whether a relay is available
func (s *SubmissionService) Configured() bool {
	return s.sender != nil
}

// SubmitApplication relays a career application, with the CV attached when present
func (s *SubmissionService) SubmitApplication(ctx context.Context, sub *models.ApplicationSubmission, cv *models.FilePart) (err error) {
	ctx, span := tracing.StartSpan(ctx, "services.SubmitApplication",
		attribute.Bool("submission.has_cv", cv != nil))
	defer func() { tracing.EndSpan(span, err) }()

	if !s.Configured() {
		metrics.Submissions.WithLabelValues(models.KindApplication, "not_configured").Inc()
		return apperrors.NotConfiguredError("mail relay")
	}

	if err = s.validate(models.KindApplication, sub); err != nil {
		return err
	}

	attachmentName := ""
	if cv != nil {
		attachmentName = cv.Filename
		metrics.UploadSize.Observe(float64(cv.Size()))
	}

	html, err := s.renderer.RenderApplication(sub, attachmentName)
	if err != nil {
		metrics.Submissions.WithLabelValues(models.KindApplication, "error").Inc()
		logger.Error("Failed to render application email", zap.Error(err))
		return apperrors.InternalError("failed to render application", err)
	}

	msg := s.message(applicationSenderName,
		fmt.Sprintf("New Application: %s - %s", sub.Position, sub.Name),
		html, sub.Email.String())
	if cv != nil {
		msg.Attachments = []mailer.Attachment{{
			Filename:    cv.Filename,
			Content:     cv.Content,
			ContentType: cv.ContentType,
		}}
	}

	if err = s.send(ctx, models.KindApplication, msg); err != nil {
		return err
	}

	logger.Info("Application submitted",
		zap.String("position", sub.Position.String()),
		zap.Bool("has_cv", cv != nil))
	return nil
}

// SubmitFeedback relays a client feedback form
func (s *SubmissionService) SubmitFeedback(ctx context.Context, sub *models.FeedbackSubmission) (err error) {
	ctx, span := tracing.StartSpan(ctx, "services.SubmitFeedback")
	defer func() { tracing.EndSpan(span, err) }()

	if !s.Configured() {
		metrics.Submissions.WithLabelValues(models.KindFeedback, "not_configured").Inc()
		return apperrors.NotConfiguredError("mail relay")
	}

	if err = s.validate(models.KindFeedback, sub); err != nil {
		return err
	}

	html, err := s.renderer.RenderFeedback(sub)
	if err != nil {
		metrics.Submissions.WithLabelValues(models.KindFeedback, "error").Inc()
		logger.Error("Failed to render feedback email", zap.Error(err))
		return apperrors.InternalError("failed to render feedback", err)
	}

	rating := render.ClampRating(sub.Rating.String())
	msg := s.message(feedbackSenderName,
		fmt.Sprintf("New Feedback: %d★ from %s", rating, sub.Name),
		html, sub.Email.String())

	if err = s.send(ctx, models.KindFeedback, msg); err != nil {
		return err
	}

	logger.Info("Feedback submitted", zap.Int("rating", rating))
	return nil
}

func (s *SubmissionService) validate(kind string, sub any) error {
	result := validation.Validate(sub)
	if result.OK {
		return nil
	}

	metrics.Submissions.WithLabelValues(kind, "invalid").Inc()
	logger.Warn("Submission failed validation",
		zap.String("kind", kind),
		zap.Strings("missing", result.Describe()))
	return apperrors.MissingFieldsError(result.MissingFields)
}

func (s *SubmissionService) message(fromName, subject, html, replyTo string) *mailer.Message {
	return &mailer.Message{
		FromName:    fromName,
		FromAddress: s.mail.Username,
		To:          s.mail.Recipient(),
		Subject:     subject,
		HTML:        html,
		ReplyTo:     replyTo,
	}
}

// send makes the single relay attempt, bounded by the configured timeout
func (s *SubmissionService) send(ctx context.Context, kind string, msg *mailer.Message) error {
	if timeout := s.mail.SendTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		metrics.Submissions.WithLabelValues(kind, "relay_failed").Inc()
		logger.Error("Failed to relay submission",
			zap.String("kind", kind),
			zap.String("subject", msg.Subject),
			zap.Error(err))
		if s.relayStatus != nil {
			s.relayStatus.Invalidate()
		}
		return apperrors.InternalError("failed to relay "+kind, err)
	}

	metrics.Submissions.WithLabelValues(kind, "success").Inc()
	return nil
}
