package intake

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"

	apperrors "github.com/codecom/codecom-api/pkg/errors"
	"github.com/codecom/codecom-api/pkg/logger"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

// MediaType returns the request's media type without parameters
func MediaType(r *http.Request) string {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mediaType
}

// IsMultipart reports whether the request carries a multipart/form-data body
func IsMultipart(r *http.Request) bool {
	return MediaType(r) == binding.MIMEMultipartPOSTForm
}

// Extract decodes a non-multipart body into dst, a pointer to a submission struct.
// Urlencoded forms are mapped by `form` tags; anything else is treated as JSON.
func Extract(r *http.Request, dst any) error {
	if MediaType(r) == binding.MIMEPOSTForm {
		return ExtractForm(r, dst)
	}
	return ExtractJSON(r, dst)
}

// ExtractJSON decodes the body as JSON. Unparseable JSON leaves dst zeroed so
// the submission fails validation instead of the request failing outright.
// Only body read failures are returned.
func ExtractJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return readError(err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, dst); err != nil {
		logger.Debug("Discarding unparseable JSON body",
			zap.Error(err),
			zap.Int("body_size", len(body)))
		reset(dst)
	}
	return nil
}

// ExtractForm maps an application/x-www-form-urlencoded body into dst
func ExtractForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return readError(err)
		}
		logger.Debug("Discarding unparseable form body", zap.Error(err))
		reset(dst)
		return nil
	}

	if err := binding.MapFormWithTag(dst, r.PostForm, "form"); err != nil {
		logger.Debug("Discarding unmappable form body", zap.Error(err))
		reset(dst)
	}
	return nil
}

func readError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("request body exceeds %d bytes: %w", maxErr.Limit, apperrors.ErrTooLarge)
	}
	return fmt.Errorf("failed to read request body: %w", err)
}

// reset zeroes the value dst points to
func reset(dst any) {
	v := reflect.ValueOf(dst)
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		v.Elem().SetZero()
	}
}
