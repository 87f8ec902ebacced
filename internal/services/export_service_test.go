package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/export"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

func TestExportService_Sessions(t *testing.T) {
	f := newSessionFixture(t, 2)
	ctx := context.Background()

	graded := f.start(t)
	f.answerAll(t, graded, 2)
	if _, err := f.svc.Submit(ctx, graded, nil); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	f.certificates.Wait()
	if _, err := f.svc.Create(ctx, &CreateSessionRequest{CandidateID: f.candidate.ID, Force: true}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	svc := NewExportService(f.repo, nil, testLogger(), time.UTC, fixedClock(fixtureNow))

	tests := []struct {
		name     string
		filters  repositories.SessionFilters
		wantRows int
	}{
		{"all sessions", repositories.SessionFilters{}, 2},
		{"graded only", repositories.SessionFilters{Status: ptr(models.SessionGraded)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, name, err := svc.Sessions(ctx, tt.filters)
			if err != nil {
				t.Fatalf("Sessions() error: %v", err)
			}
			defer file.Close()

			if name != export.Filename(fixtureNow) || !strings.HasSuffix(name, ".xlsx") {
				t.Errorf("filename = %q", name)
			}
			rows, err := file.GetRows(export.SheetName)
			if err != nil {
				t.Fatalf("GetRows() error: %v", err)
			}
			if len(rows) != tt.wantRows+1 {
				t.Errorf("rows = %d, want header plus %d", len(rows), tt.wantRows)
			}
		})
	}
}
