// Package validation checks decoded job variables against `validate`
// struct tags and reports every violation with a stable code.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// requestIDPattern accepts UUIDs and slug-like correlation ids.
var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9._:-]*[a-zA-Z0-9])?$`)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonFieldName)
		_ = v.RegisterValidation("request_id", validateRequestID)
		instance = v
	})
	return instance
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func validateRequestID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if len(id) == 0 || len(id) > 128 {
		return false
	}
	return requestIDPattern.MatchString(id)
}

// Struct validates s and collects every violation.
func Struct(s interface{}) *ValidationResult {
	err := get().Struct(s)
	if err == nil {
		return &ValidationResult{Valid: true}
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "", Message: err.Error(), Code: "INVALID_INPUT"}},
		}
	}

	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fieldPath(fe),
			Message: message(fe),
			Code:    code(fe.Tag()),
		})
	}
	return &ValidationResult{Valid: false, Errors: out}
}

// fieldPath drops the root struct name: "Input.quotes[0].vendorName"
// becomes "quotes[0].vendorName".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field missing"
	case "min":
		return fmt.Sprintf("must have at least %s element(s)", fe.Param())
	case "max":
		return fmt.Sprintf("must have at most %s element(s)", fe.Param())
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("value must satisfy %s %s", fe.Tag(), fe.Param())
	case "oneof":
		return fmt.Sprintf("value must be one of [%s]", fe.Param())
	case "request_id":
		return "must be 1-128 characters of letters, digits, '.', '_', ':' or '-'"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func code(tag string) string {
	switch tag {
	case "required":
		return "REQUIRED_FIELD_MISSING"
	case "min", "max":
		return "LENGTH_VIOLATION"
	case "gt", "gte", "lt", "lte":
		return "RANGE_VIOLATION"
	case "oneof":
		return "INVALID_ENUM_VALUE"
	default:
		return "INVALID_FORMAT"
	}
}

// GetErrorMessages returns formatted error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		if err.Field == "" {
			messages[i] = err.Message
			continue
		}
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// Error joins every message, for use as a job error message.
func (vr *ValidationResult) Error() string {
	return strings.Join(vr.GetErrorMessages(), "; ")
}

func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

func (vr *ValidationResult) GetErrorsForField(fieldName string) []ValidationError {
	var out []ValidationError
	for _, err := range vr.Errors {
		if err.Field == fieldName {
			out = append(out, err)
		}
	}
	return out
}
