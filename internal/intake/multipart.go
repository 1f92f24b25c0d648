package intake

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/codecom/codecom-api/internal/models"
	apperrors "github.com/codecom/codecom-api/pkg/errors"
	"github.com/gin-gonic/gin/binding"
)

var (
	// ErrMalformedMultipart wraps any stream error from the multipart reader
	ErrMalformedMultipart = errors.New("malformed multipart body")

	// ErrFileTooLarge is returned when one uploaded file exceeds Limits.MaxFileBytes
	ErrFileTooLarge = fmt.Errorf("uploaded file exceeds size limit: %w", apperrors.ErrTooLarge)

	// ErrFieldTooLarge is returned when one scalar field exceeds Limits.MaxFieldBytes
	ErrFieldTooLarge = fmt.Errorf("form field exceeds size limit: %w", apperrors.ErrTooLarge)

	errLimit = errors.New("limit reached")
)

const defaultFileContentType = "application/octet-stream"

// Limits caps the bytes buffered per part. The part count is not limited;
// the whole body is bounded by the body size middleware.
type Limits struct {
	MaxFileBytes  int64
	MaxFieldBytes int64
}

// MultipartForm is a fully buffered multipart/form-data body
type MultipartForm struct {
	Fields map[string]string
	Files  []models.FilePart
}

// DecodeMultipart streams a multipart/form-data body part by part. Parts with a
// filename become FileParts; every other named part becomes a scalar field
// (the last value wins for repeated names).
func DecodeMultipart(r *http.Request, limits Limits) (*MultipartForm, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMultipart, err)
	}

	form := &MultipartForm{Fields: make(map[string]string)}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, classify(err)
		}

		name := part.FormName()
		filename := part.FileName()

		switch {
		case filename != "":
			content, readErr := readLimited(part, limits.MaxFileBytes)
			if readErr != nil {
				_ = part.Close()
				if errors.Is(readErr, errLimit) {
					return nil, fmt.Errorf("%w: %q is larger than %d bytes", ErrFileTooLarge, filename, limits.MaxFileBytes)
				}
				return nil, classify(readErr)
			}

			contentType := part.Header.Get("Content-Type")
			if contentType == "" {
				contentType = defaultFileContentType
			}
			form.Files = append(form.Files, models.FilePart{
				FieldName:   name,
				Filename:    filename,
				Content:     content,
				ContentType: contentType,
			})
		case name != "":
			value, readErr := readLimited(part, limits.MaxFieldBytes)
			if readErr != nil {
				_ = part.Close()
				if errors.Is(readErr, errLimit) {
					return nil, fmt.Errorf("%w: %q is larger than %d bytes", ErrFieldTooLarge, name, limits.MaxFieldBytes)
				}
				return nil, classify(readErr)
			}
			form.Fields[name] = string(value)
		}

		_ = part.Close()
	}

	return form, nil
}

// File returns the first file uploaded under field, or nil
func (f *MultipartForm) File(field string) *models.FilePart {
	for i := range f.Files {
		if f.Files[i].FieldName == field {
			return &f.Files[i]
		}
	}
	return nil
}

// Bind maps the scalar fields into dst using its `form` tags
func (f *MultipartForm) Bind(dst any) error {
	values := make(map[string][]string, len(f.Fields))
	for k, v := range f.Fields {
		values[k] = []string{v}
	}
	return binding.MapFormWithTag(dst, values, "form")
}

// readLimited reads at most limit bytes; a longer stream yields errLimit
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errLimit
	}
	return data, nil
}

func classify(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return readError(err)
	}
	return fmt.Errorf("%w: %v", ErrMalformedMultipart, err)
}
