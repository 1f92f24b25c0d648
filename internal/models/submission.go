package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Submission kinds, also used as metric and log labels
const (
	KindApplication = "application"
	KindFeedback    = "feedback"
)

// CVFieldName is the only multipart file field an application consumes
const CVFieldName = "cv"

// FlexString is a form value that accepts JSON strings, numbers and booleans.
// Falsy JSON values (null, false, 0) decode to the empty string so that the
// required-field check treats them as absent.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 {
		*f = ""
		return nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case 'n', 'f':
		if !bytes.Equal(raw, []byte("null")) && !bytes.Equal(raw, []byte("false")) {
			return fmt.Errorf("invalid literal %q", raw)
		}
		*f = ""
	case 't':
		if !bytes.Equal(raw, []byte("true")) {
			return fmt.Errorf("invalid literal %q", raw)
		}
		*f = "true"
	case '{', '[':
		return fmt.Errorf("expected a scalar value, got %q", raw[:1])
	default:
		n, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", raw, err)
		}
		if n == 0 {
			*f = ""
			return nil
		}
		*f = FlexString(raw)
	}
	return nil
}

// String returns the plain value
func (f FlexString) String() string {
	return string(f)
}

// ApplicationSubmission represents a career application form
type ApplicationSubmission struct {
	Name       FlexString `json:"name" form:"name" binding:"required"`
	Email      FlexString `json:"email" form:"email" binding:"required"`
	Phone      FlexString `json:"phone" form:"phone"`
	Location   FlexString `json:"location" form:"location"`
	Position   FlexString `json:"position" form:"position" binding:"required"`
	Experience FlexString `json:"experience" form:"experience"`
	Portfolio  FlexString `json:"portfolio" form:"portfolio"`
	Motivation FlexString `json:"motivation" form:"motivation" binding:"required"`
	Additional FlexString `json:"additional" form:"additional"`
}

// FeedbackSubmission represents a client feedback form
type FeedbackSubmission struct {
	Name     FlexString `json:"name" form:"name" binding:"required"`
	Company  FlexString `json:"company" form:"company"`
	Email    FlexString `json:"email" form:"email" binding:"required"`
	Rating   FlexString `json:"rating" form:"rating" binding:"required"`
	Feedback FlexString `json:"feedback" form:"feedback" binding:"required"`
}

// FilePart is one uploaded file held in memory for the duration of a request
type FilePart struct {
	FieldName   string
	Filename    string
	Content     []byte
	ContentType string
}

// Size returns the file length in bytes
func (p *FilePart) Size() int {
	return len(p.Content)
}

// SubmissionResult is the response body of both submission endpoints
type SubmissionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// PreflightResult acknowledges an OPTIONS request
type PreflightResult struct {
	OK bool `json:"ok"`
}
