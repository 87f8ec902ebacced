package validator

import (
	"errors"
	"strings"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// ValidateCohort checks the fields the cohort variant requires
func (v *Validator) ValidateCohort(cohort models.Cohort) ValidationErrors {
	err := cohort.Validate()
	if err == nil {
		return nil
	}

	var fieldErr *models.CohortFieldError
	switch {
	case errors.As(err, &fieldErr):
		return ValidationErrors{{
			Field:   fieldErr.Field,
			Message: "is required for " + string(fieldErr.Kind) + " cohort",
			Rule:    "cohort_variant",
		}}
	case errors.Is(err, models.ErrCourseYearMissing):
		return ValidationErrors{{Field: "course_year", Message: "is required", Value: cohort.Year, Rule: "required"}}
	default:
		return ValidationErrors{{Field: "cohort_kind", Message: err.Error(), Value: cohort.Kind, Rule: "cohort_kind"}}
	}
}

// ValidateUpload checks the request-level rules of a question upload. Document
// contents are checked by the splitter.
func (v *Validator) ValidateUpload(subjectID uint, docs map[models.Language][]byte, answerKey string) ValidationErrors {
	var errs ValidationErrors

	if subjectID == 0 {
		errs = append(errs, ValidationError{Field: "subject_id", Message: "is required", Rule: "required"})
	}

	present := 0
	for lang, raw := range docs {
		if !lang.IsValid() {
			errs = append(errs, ValidationError{Field: "documents", Message: "unsupported language", Value: lang, Rule: "language"})
			continue
		}
		if len(raw) > 0 {
			present++
		}
	}
	if present == 0 {
		errs = append(errs, ValidationError{Field: "documents", Message: "at least one language document is required", Rule: "required"})
	}

	if strings.TrimSpace(answerKey) == "" {
		errs = append(errs, ValidationError{Field: "answers", Message: "is required", Rule: "required"})
	}

	return errs
}
