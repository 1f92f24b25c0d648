package handlers

import (
	"errors"
	"net/http"

	"github.com/codecom/codecom-api/internal/intake"
	"github.com/codecom/codecom-api/internal/models"
	"github.com/codecom/codecom-api/internal/services"
	"github.com/codecom/codecom-api/internal/validation"
	apperrors "github.com/codecom/codecom-api/pkg/errors"
	"github.com/codecom/codecom-api/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response messages shown to the submitter
const (
	ApplicationSuccessMessage = "Application submitted successfully! We'll review it and get back to you soon."
	ApplicationFailedMessage  = "Failed to submit application. Please try again or email us directly."
	FeedbackSuccessMessage    = "Thank you for your feedback! We appreciate you taking the time to share your experience."
	FeedbackFailedMessage     = "Failed to submit feedback. Please try again or email us directly."
	NotConfiguredMessage      = "Server email is not configured. Set GMAIL_USER and GMAIL_APP_PASSWORD environment variables."
	TooLargeMessage           = "Upload is too large. Please attach a smaller file or email us directly."
	MethodNotAllowedMessage   = "Method Not Allowed"
)

type SubmissionHandler struct {
	service services.SubmissionServiceInterface
	limits  intake.Limits
}

func NewSubmissionHandler(service services.SubmissionServiceInterface, limits intake.Limits) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		limits:  limits,
	}
}

// SubmitApplication handles POST /api/submit-application.
// Accepts JSON, urlencoded and multipart bodies; a multipart `cv` file is attached to the email.
func (h *SubmissionHandler) SubmitApplication(c *gin.Context) {
	if !h.service.Configured() {
		respondResult(c, http.StatusInternalServerError, NotConfiguredMessage, apperrors.NotConfiguredError("mail relay"))
		return
	}

	var sub models.ApplicationSubmission
	var cv *models.FilePart

	if intake.IsMultipart(c.Request) {
		form, err := intake.DecodeMultipart(c.Request, h.limits)
		if err == nil {
			err = form.Bind(&sub)
		}
		if err != nil {
			h.decodeFailure(c, ApplicationFailedMessage, err)
			return
		}
		cv = form.File(models.CVFieldName)
	} else if err := intake.Extract(c.Request, &sub); err != nil {
		h.decodeFailure(c, ApplicationFailedMessage, err)
		return
	}

	err := h.service.SubmitApplication(c.Request.Context(), &sub, cv)
	h.respond(c, err, ApplicationSuccessMessage, ApplicationFailedMessage)
}

// SubmitFeedback handles POST /api/submit-feedback
func (h *SubmissionHandler) SubmitFeedback(c *gin.Context) {
	if !h.service.Configured() {
		respondResult(c, http.StatusInternalServerError, NotConfiguredMessage, apperrors.NotConfiguredError("mail relay"))
		return
	}

	var sub models.FeedbackSubmission

	if intake.IsMultipart(c.Request) {
		// Files are not used by feedback; only the scalar fields are bound
		form, err := intake.DecodeMultipart(c.Request, h.limits)
		if err == nil {
			err = form.Bind(&sub)
		}
		if err != nil {
			h.decodeFailure(c, FeedbackFailedMessage, err)
			return
		}
	} else if err := intake.Extract(c.Request, &sub); err != nil {
		h.decodeFailure(c, FeedbackFailedMessage, err)
		return
	}

	err := h.service.SubmitFeedback(c.Request.Context(), &sub)
	h.respond(c, err, FeedbackSuccessMessage, FeedbackFailedMessage)
}

// Preflight acknowledges an OPTIONS request that reached the router
func (h *SubmissionHandler) Preflight(c *gin.Context) {
	c.JSON(http.StatusOK, models.PreflightResult{OK: true})
}

// MethodNotAllowed is installed as the router's NoMethod handler
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, models.SubmissionResult{
		Success: false,
		Message: MethodNotAllowedMessage,
	})
}

func (h *SubmissionHandler) decodeFailure(c *gin.Context, failedMessage string, err error) {
	if errors.Is(err, apperrors.ErrTooLarge) {
		logger.Warn("Submission body rejected as too large",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		respondResult(c, http.StatusRequestEntityTooLarge, TooLargeMessage, err)
		return
	}

	logger.Error("Failed to decode submission body",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	respondResult(c, http.StatusInternalServerError, failedMessage, err)
}

func (h *SubmissionHandler) respond(c *gin.Context, err error, successMessage, failedMessage string) {
	switch {
	case err == nil:
		respondResult(c, http.StatusOK, successMessage, nil)
	case errors.Is(err, apperrors.ErrInvalidInput):
		respondResult(c, http.StatusBadRequest, validation.MissingFieldsMessage, err)
	case errors.Is(err, apperrors.ErrNotConfigured):
		respondResult(c, http.StatusInternalServerError, NotConfiguredMessage, err)
	default:
		respondResult(c, http.StatusInternalServerError, failedMessage, err)
	}
}
