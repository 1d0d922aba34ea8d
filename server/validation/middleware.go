// Package validation decodes and validates API request bodies. Every
// POST endpoint runs its body through the same pipeline: content type
// check, JSON decode, struct validation with go-playground/validator,
// and a tiktoken context-budget check for content-bearing requests.
package validation

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/potensia/inkwell/config"
	"github.com/potensia/inkwell/errors"
)

// ValidationErrorDetail describes one field-level validation failure.
type ValidationErrorDetail struct {
	Field   string `json:"field"`           // The field that failed validation
	Message string `json:"message"`         // Human-readable error message
	Code    string `json:"code"`            // Machine-readable error code
	Value   string `json:"value,omitempty"` // The invalid value (if safe to return)
}

// tokenBudgeted is implemented by request types whose content counts
// against the context window.
type tokenBudgeted interface {
	TokenText() string
}

// Validator checks decoded request bodies against their schemas and the
// configured token budget.
type Validator struct {
	validate         *validator.Validate
	counter          *TokenCounter
	maxContextTokens int
}

// New builds a request validator. The token counter uses the fixer model
// encoding; all supported models share the same tokenizer family.
func New(pipe config.PipelineConfig) (*Validator, error) {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	model := pipe.FixerModel
	if model == "" {
		model = "gpt-4o"
	}
	counter, err := NewTokenCounter(model)
	if err != nil {
		return nil, fmt.Errorf("initialize token counter: %w", err)
	}

	return &Validator{
		validate:         v,
		counter:          counter,
		maxContextTokens: pipe.MaxContextTokens,
	}, nil
}

// DecodeAndValidate reads the request body into dst and validates it.
// A nil return means dst is populated and safe to use.
func (v *Validator) DecodeAndValidate(r *http.Request, requestID string, dst interface{}) *errors.InkwellError {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		return errors.NewValidationError(requestID, "Invalid or missing Content-Type header",
			detailsMap([]ValidationErrorDetail{{
				Field:   "header:Content-Type",
				Message: "Content-Type must be application/json",
				Code:    "invalid_content_type",
				Value:   ct,
			}}))
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.NewValidationError(requestID, "Invalid request format",
			detailsMap([]ValidationErrorDetail{{
				Field:   "body",
				Message: err.Error(),
				Code:    "invalid_json",
			}}))
	}

	if err := v.validate.Struct(dst); err != nil {
		var details []ValidationErrorDetail
		for _, fe := range err.(validator.ValidationErrors) {
			details = append(details, ValidationErrorDetail{
				Field:   fe.Field(),
				Message: fieldErrorMessage(fe),
				Code:    fmt.Sprintf("%s_validation_failed", fe.Tag()),
				Value:   fmt.Sprintf("%v", fe.Value()),
			})
		}
		return errors.NewValidationError(requestID, "Request validation failed", detailsMap(details))
	}

	if budgeted, ok := dst.(tokenBudgeted); ok {
		if err := v.counter.ValidateTokens(budgeted.TokenText(), v.maxContextTokens); err != nil {
			return errors.NewValidationError(requestID, "Token limit exceeded",
				detailsMap([]ValidationErrorDetail{{
					Field:   "content",
					Message: err.Error(),
					Code:    "token_limit_exceeded",
					Value:   fmt.Sprintf("%d", v.maxContextTokens),
				}}))
		}
	}

	return nil
}

// fieldErrorMessage renders a human-readable message for one field error.
func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", fe.Field())
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s characters", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("field '%s' must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("field '%s' must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("validation failed on '%s' for tag '%s'", fe.Field(), fe.Tag())
	}
}

// detailsMap packs field errors into the error response details.
func detailsMap(details []ValidationErrorDetail) map[string]interface{} {
	return map[string]interface{}{"fields": details}
}
