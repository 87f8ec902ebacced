package services

import (
	"context"
	"errors"
	"testing"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

func newCandidateFixture() (*memoryRepository, CandidateService) {
	repo := newMemoryRepository()
	return repo, NewCandidateService(repo, nil, testLogger(), validator.New())
}

func ptr[T any](v T) *T { return &v }

func TestCandidateService_Register(t *testing.T) {
	_, svc := newCandidateFixture()
	ctx := context.Background()

	req := &RegisterCandidateRequest{
		TelegramID:       42,
		FullName:         "  Aliyeva   Dilnoza  ",
		Phone:            ptr("+998901112233"),
		Language:         "RU",
		CohortKind:       models.CohortStandard,
		EducationLevelID: ptr(uint(3)),
		CourseYear:       10,
	}
	candidate, created, err := svc.Register(ctx, req)
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if !created {
		t.Error("created = false for a new candidate")
	}
	if candidate.FullName != "Aliyeva Dilnoza" || candidate.Language != models.LanguageRu {
		t.Errorf("candidate = %+v", candidate)
	}
	if candidate.EducationLevelID != nil {
		t.Error("standard cohort kept an education level")
	}

	again, created, err := svc.Register(ctx, req)
	if err != nil {
		t.Fatalf("second Register() error: %v", err)
	}
	if created || again.ID != candidate.ID {
		t.Errorf("second Register() = %d created=%v, want existing %d", again.ID, created, candidate.ID)
	}
}

func TestCandidateService_RegisterErrors(t *testing.T) {
	tests := []struct {
		name      string
		req       *RegisterCandidateRequest
		wantField string
		wantErr   error
	}{
		{
			name:      "higher education without faculty",
			req:       &RegisterCandidateRequest{TelegramID: 7, FullName: "A B", CohortKind: models.CohortHigherEducation, EducationLevelID: ptr(uint(1)), CourseYear: 2},
			wantField: "faculty",
		},
		{
			name:      "unknown cohort kind",
			req:       &RegisterCandidateRequest{TelegramID: 7, FullName: "A B", CohortKind: "school", CourseYear: 2},
			wantField: "cohort_kind",
		},
		{
			name:      "bad phone",
			req:       &RegisterCandidateRequest{TelegramID: 7, FullName: "A B", Phone: ptr("call me"), CohortKind: models.CohortStandard, CourseYear: 2},
			wantField: "phone",
		},
		{
			name:      "course year out of range",
			req:       &RegisterCandidateRequest{TelegramID: 7, FullName: "A B", CohortKind: models.CohortStandard, CourseYear: 12},
			wantField: "course_year",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, svc := newCandidateFixture()
			_, _, err := svc.Register(context.Background(), tt.req)

			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("error = %v, want validation errors", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("errors = %v, want one on %s", verrs, tt.wantField)
			}
		})
	}
}

func TestCandidateService_PhoneUniqueness(t *testing.T) {
	repo, svc := newCandidateFixture()
	ctx := context.Background()

	first := repo.addCandidate(1, "First", 5)
	if err := repo.Candidate().UpdatePhone(ctx, nil, first.ID, "+998900000001"); err != nil {
		t.Fatalf("UpdatePhone() error: %v", err)
	}
	repo.addCandidate(2, "Second", 5)

	_, _, err := svc.Register(ctx, &RegisterCandidateRequest{
		TelegramID: 3, FullName: "Third", Phone: ptr("+998900000001"),
		CohortKind: models.CohortStandard, CourseYear: 5,
	})
	if !errors.Is(err, ErrPhoneTaken) {
		t.Errorf("Register() error = %v, want ErrPhoneTaken", err)
	}

	_, err = svc.UpdatePhone(ctx, 2, &UpdatePhoneRequest{Phone: "+998900000001"})
	if !errors.Is(err, ErrPhoneTaken) {
		t.Errorf("UpdatePhone() error = %v, want ErrPhoneTaken", err)
	}

	updated, err := svc.UpdatePhone(ctx, 2, &UpdatePhoneRequest{Phone: "+998900000002"})
	if err != nil {
		t.Fatalf("UpdatePhone() error: %v", err)
	}
	if updated.Phone == nil || *updated.Phone != "+998900000002" {
		t.Errorf("Phone = %v", updated.Phone)
	}
}

func TestCandidateService_UpdateLanguage(t *testing.T) {
	repo, svc := newCandidateFixture()
	ctx := context.Background()
	repo.addCandidate(5, "Someone", 3)

	candidate, err := svc.UpdateLanguage(ctx, 5, &UpdateLanguageRequest{Language: "kaa"})
	if err != nil {
		t.Fatalf("UpdateLanguage() error: %v", err)
	}
	if candidate.Language != models.LanguageKaa {
		t.Errorf("Language = %s, want kaa", candidate.Language)
	}

	if _, err := svc.UpdateLanguage(ctx, 5, &UpdateLanguageRequest{Language: "en"}); err == nil {
		t.Error("expected validation error for unsupported language")
	}
	if _, err := svc.UpdateLanguage(ctx, 404, &UpdateLanguageRequest{Language: "uz"}); !errors.Is(err, ErrCandidateNotFound) {
		t.Errorf("error = %v, want ErrCandidateNotFound", err)
	}
}
