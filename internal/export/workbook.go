// Package export writes exam sessions to spreadsheets.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

const (
	SheetName   = "Test Results"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timeLayout  = "2006-01-02 15:04:05"
)

// Columns are the header cells in order
var Columns = []string{
	"Test ID",
	"Telegram ID",
	"Full Name",
	"Phone",
	"Education Type",
	"Institution",
	"Education Level",
	"Faculty",
	"Course",
	"Started At",
	"Completed At",
	"Score",
	"Total Questions",
	"Percentage",
	"Tier",
	"Time Spent",
	"Grading Token",
	"Certificate Sent",
}

// Filename names an export created at now
func Filename(now time.Time) string {
	return fmt.Sprintf("test_results_%s.xlsx", now.Format("20060102_150405"))
}

// SessionsWorkbook builds a single sheet workbook with one row per session.
// Sessions must have Candidate loaded.
func SessionsWorkbook(sessions []*models.ExamSession, loc *time.Location) (*excelize.File, error) {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, s := range sessions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := sessionRow(s, loc)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	return f, nil
}

func sessionRow(s *models.ExamSession, loc *time.Location) []interface{} {
	c := s.Candidate
	return []interface{}{
		s.ID,
		c.TelegramID,
		c.FullName,
		deref(c.Phone),
		deref(c.EducationType),
		deref(c.Institution),
		deref(c.EducationLevel),
		deref(c.Faculty),
		intOrEmpty(c.CourseYear),
		formatTime(&s.StartedAt, loc),
		formatTime(s.CompletedAt, loc),
		intOrEmpty(s.Score),
		s.Total(),
		floatOrEmpty(s.Percentage),
		tierOrEmpty(s.Tier),
		duration(s.ElapsedSeconds),
		deref(s.GradingToken),
		yesNo(s.CertificateSent),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOrEmpty(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func floatOrEmpty(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func tierOrEmpty(t *models.Tier) string {
	if t == nil {
		return ""
	}
	return string(*t)
}

func formatTime(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.In(loc).Format(timeLayout)
}

// duration renders seconds as MM:SS
func duration(seconds *int) string {
	if seconds == nil {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", *seconds/60, *seconds%60)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
