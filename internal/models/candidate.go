package models

import (
	"strconv"
	"strings"
	"time"
)

// Candidate is the exam taker as registered by the chat-bot front end.
type Candidate struct {
	ID         uint     `json:"id" gorm:"primaryKey"`
	TelegramID int64    `json:"telegram_id" gorm:"uniqueIndex;not null"`
	Username   *string  `json:"username" gorm:"size:100"`
	FullName   string   `json:"full_name" gorm:"size:150"`
	Phone      *string  `json:"phone" gorm:"uniqueIndex;size:20"`
	Language   Language `json:"language" gorm:"size:3;default:uz"`

	// Cohort
	CohortKind       CohortKind `json:"cohort_kind" gorm:"size:20;default:standard"`
	EducationType    *string    `json:"education_type" gorm:"size:150"`
	InstitutionID    *uint      `json:"institution_id" gorm:"index"`
	Institution      *string    `json:"institution" gorm:"size:255"`
	EducationLevelID *uint      `json:"education_level_id"`
	EducationLevel   *string    `json:"education_level" gorm:"size:150"`
	FacultyID        *uint      `json:"faculty_id"`
	Faculty          *string    `json:"faculty" gorm:"size:255"`
	CourseYear       *int       `json:"course_year"`

	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cohort assembles the tagged cohort variant from the stored columns.
func (c *Candidate) Cohort() Cohort {
	year := 0
	if c.CourseYear != nil {
		year = *c.CourseYear
	}
	kind := c.CohortKind
	if kind == "" {
		kind = CohortStandard
	}
	return Cohort{
		Kind:             kind,
		InstitutionID:    c.InstitutionID,
		EducationLevelID: c.EducationLevelID,
		FacultyID:        c.FacultyID,
		Year:             year,
	}.Normalized()
}

// NameParts splits the full name into exactly three parts for certificates:
// surname, given name and the remainder (patronymic).
func (c *Candidate) NameParts() [3]string {
	var parts [3]string
	fields := strings.Fields(c.FullName)
	for i := 0; i < len(fields) && i < 2; i++ {
		parts[i] = fields[i]
	}
	if len(fields) > 2 {
		parts[2] = strings.Join(fields[2:], " ")
	}
	return parts
}

// DisplayName falls back to the telegram id when no name was given.
func (c *Candidate) DisplayName() string {
	if name := strings.TrimSpace(c.FullName); name != "" {
		return name
	}
	return "#" + strconv.FormatInt(c.TelegramID, 10)
}
