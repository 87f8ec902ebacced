package models

import (
	"errors"
	"fmt"
)

type CohortKind string

const (
	CohortStandard        CohortKind = "standard"
	CohortHigherEducation CohortKind = "higher_education"
)

var (
	ErrInvalidCohortKind = errors.New("invalid cohort kind")
	ErrCourseYearMissing = errors.New("course year is required")
)

// Cohort is the eligibility class of a candidate. Higher education cohorts
// carry an education level and a faculty; standard cohorts carry neither.
type Cohort struct {
	Kind             CohortKind `json:"kind"`
	InstitutionID    *uint      `json:"institution_id,omitempty"`
	EducationLevelID *uint      `json:"education_level_id,omitempty"`
	FacultyID        *uint      `json:"faculty_id,omitempty"`
	Year             int        `json:"year"`
}

// RequiresLevel reports whether the variant needs an education level.
func (k CohortKind) RequiresLevel() bool { return k == CohortHigherEducation }

// RequiresFaculty reports whether the variant needs a faculty.
func (k CohortKind) RequiresFaculty() bool { return k == CohortHigherEducation }

// CohortFieldError names a field the variant requires.
type CohortFieldError struct {
	Kind  CohortKind
	Field string
}

func (e *CohortFieldError) Error() string {
	return fmt.Sprintf("%s is required for %s cohort", e.Field, e.Kind)
}

// Validate checks the fields required by the cohort variant.
func (c Cohort) Validate() error {
	switch c.Kind {
	case CohortStandard, CohortHigherEducation:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCohortKind, c.Kind)
	}
	if c.Year <= 0 {
		return ErrCourseYearMissing
	}
	if c.Kind.RequiresLevel() && c.EducationLevelID == nil {
		return &CohortFieldError{Kind: c.Kind, Field: "education_level"}
	}
	if c.Kind.RequiresFaculty() && c.FacultyID == nil {
		return &CohortFieldError{Kind: c.Kind, Field: "faculty"}
	}
	return nil
}

// Normalized drops fields that the variant does not carry.
func (c Cohort) Normalized() Cohort {
	if c.Kind != CohortHigherEducation {
		c.EducationLevelID = nil
		c.FacultyID = nil
	}
	return c
}
