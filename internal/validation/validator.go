package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MissingFieldsMessage is the only validation detail shown to the submitter
const MissingFieldsMessage = "Please fill in all required fields."

var validate = newValidator()

// newValidator reads the gin-style `binding` tags and reports fields by their JSON name
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})
	return v
}

// Result is the outcome of a required-field check
type Result struct {
	OK            bool
	MissingFields []string
}

// Validate checks the required fields of a submission struct (or pointer to one).
// A value is missing only when it is empty; whitespace is not trimmed.
func Validate(submission any) Result {
	err := validate.Struct(submission)
	if err == nil {
		return Result{OK: true}
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return Result{OK: false}
	}

	missing := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		missing = append(missing, fe.Field())
	}
	return Result{OK: false, MissingFields: missing}
}

// Describe turns a failed result into log-friendly messages
func (r Result) Describe() []string {
	msgs := make([]string, 0, len(r.MissingFields))
	for _, f := range r.MissingFields {
		msgs = append(msgs, f+" is required")
	}
	return msgs
}
