package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

func TestFilename(t *testing.T) {
	got := Filename(time.Date(2026, 3, 9, 14, 5, 7, 0, time.UTC))
	if got != "test_results_20260309_140507.xlsx" {
		t.Errorf("Filename() = %q", got)
	}
}

func TestSessionsWorkbook(t *testing.T) {
	phone := "+998901112233"
	institution := "School 5"
	year := 9
	score := 8
	pct := 80.0
	tier := models.TierFail
	token := "ABCD-EFGH-JKMN-PQRS"
	elapsed := 754
	started := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	completed := started.Add(13 * time.Minute)

	sessions := []*models.ExamSession{
		{
			ID:              12,
			QuestionIDs:     []uint{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			StartedAt:       started,
			CompletedAt:     &completed,
			Score:           &score,
			Percentage:      &pct,
			Tier:            &tier,
			GradingToken:    &token,
			ElapsedSeconds:  &elapsed,
			CertificateSent: false,
			Candidate: models.Candidate{
				TelegramID:  555,
				FullName:    "Aliyev Vali Karimovich",
				Phone:       &phone,
				Institution: &institution,
				CourseYear:  &year,
			},
		},
		{
			ID:          13,
			QuestionIDs: []uint{1},
			StartedAt:   started,
			Candidate:   models.Candidate{TelegramID: 777},
		},
	}

	f, err := SessionsWorkbook(sessions, time.UTC)
	if err != nil {
		t.Fatalf("SessionsWorkbook() error: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error: %v", err)
	}

	reopened, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader() error: %v", err)
	}
	rows, err := reopened.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows() error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if len(rows[0]) != len(Columns) || rows[0][0] != "Test ID" || rows[0][len(Columns)-1] != "Certificate Sent" {
		t.Errorf("unexpected header %v", rows[0])
	}

	first := rows[1]
	checks := map[int]string{
		0:  "12",
		1:  "555",
		2:  "Aliyev Vali Karimovich",
		3:  phone,
		5:  institution,
		8:  "9",
		9:  "2026-05-01 09:00:00",
		10: "2026-05-01 09:13:00",
		11: "8",
		12: "10",
		13: "80",
		14: "fail",
		15: "12:34",
		16: token,
		17: "No",
	}
	for col, want := range checks {
		if first[col] != want {
			t.Errorf("column %q = %q, want %q", Columns[col], first[col], want)
		}
	}

	// an ungraded session leaves grading columns empty
	second := rows[2]
	if len(second) > 11 && second[11] != "" {
		t.Errorf("ungraded session has score %q", second[11])
	}
}
