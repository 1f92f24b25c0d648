package services

import (
	"context"

	"github.com/codecom/codecom-api/internal/models"
)

// SubmissionServiceInterface defines the interface for form submission operations
type SubmissionServiceInterface interface {
	Configured() bool
	SubmitApplication(ctx context.Context, sub *models.ApplicationSubmission, cv *models.FilePart) error
	SubmitFeedback(ctx context.Context, sub *models.FeedbackSubmission) error
}

var _ SubmissionServiceInterface = (*SubmissionService)(nil)
