package models

import "time"

type Subject struct {
	ID   uint          `json:"id" gorm:"primaryKey"`
	Name LocalizedName `json:"name" gorm:"embedded"`

	// Eligible cohort years, inclusive
	MinCourseYear int `json:"min_course_year" gorm:"not null;default:1"`
	MaxCourseYear int `json:"max_course_year" gorm:"not null;default:11"`

	VoucherTemplateName *string `json:"voucher_template_name" gorm:"size:50"`
	IsActive            bool    `json:"is_active" gorm:"default:true;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Accepts reports whether a candidate in the given year may sit this subject.
func (s *Subject) Accepts(year int) bool {
	return year >= s.MinCourseYear && year <= s.MaxCourseYear
}
