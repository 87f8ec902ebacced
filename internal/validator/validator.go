package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// Validator wraps go-playground validation with the service's custom tags
type Validator struct {
	validate *validator.Validate
}

// ValidationError describes one rejected field
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// New creates a validator with the custom tags registered
func New() *Validator {
	validate := validator.New()

	// report json names instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v := &Validator{validate: validate}
	v.registerBusinessRules()
	return v
}

// Validate checks struct tags. It returns ValidationErrors or nil.
func (v *Validator) Validate(s interface{}) error {
	if errs := ToValidationErrors(v.validate.Struct(s)); len(errs) > 0 {
		return errs
	}
	return nil
}

// ToValidationErrors converts validator errors; other errors become a single
// entry.
func ToValidationErrors(err error) ValidationErrors {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "invalid"}}
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: messageFor(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "answer_symbol":
		return "must be one of A, B, C, D"
	case "language":
		return "must be one of uz, kaa, ru"
	case "session_action":
		return "must be one of next, prev, submit"
	case "cohort_kind":
		return "must be standard or higher_education"
	case "phone":
		return "must be a phone number"
	default:
		return "is invalid"
	}
}

// Session navigation actions accepted with an answer
const (
	ActionNext   = "next"
	ActionPrev   = "prev"
	ActionSubmit = "submit"
)

func (v *Validator) registerBusinessRules() {
	v.validate.RegisterValidation("answer_symbol", func(fl validator.FieldLevel) bool {
		return models.NormalizeAnswer(fl.Field().String()).IsValid()
	})

	v.validate.RegisterValidation("language", func(fl validator.FieldLevel) bool {
		return models.Language(strings.ToLower(fl.Field().String())).IsValid()
	})

	v.validate.RegisterValidation("session_action", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case ActionNext, ActionPrev, ActionSubmit:
			return true
		}
		return false
	})

	v.validate.RegisterValidation("cohort_kind", func(fl validator.FieldLevel) bool {
		switch models.CohortKind(fl.Field().String()) {
		case models.CohortStandard, models.CohortHigherEducation:
			return true
		}
		return false
	})

	// optional leading +, then 7 to 15 digits
	v.validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		s := strings.TrimPrefix(strings.TrimSpace(fl.Field().String()), "+")
		if len(s) < 7 || len(s) > 15 {
			return false
		}
		for _, r := range s {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	})
}
