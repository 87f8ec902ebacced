package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

type candidateService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewCandidateService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) CandidateService {
	return &candidateService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== REGISTRATION =====

func (s *candidateService) Register(ctx context.Context, req *RegisterCandidateRequest) (*models.Candidate, bool, error) {
	s.logger.Info("Registering candidate", "telegram_id", req.TelegramID)

	if err := s.validator.Validate(req); err != nil {
		return nil, false, fmt.Errorf("validation failed: %w", err)
	}

	existing, err := s.repo.Candidate().GetByTelegramID(ctx, s.db, req.TelegramID)
	if err == nil {
		return existing, false, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, false, fmt.Errorf("failed to get candidate: %w", err)
	}

	candidate := candidateFromRequest(req)
	if errs := s.validator.ValidateCohort(candidate.Cohort()); len(errs) > 0 {
		return nil, false, fmt.Errorf("validation failed: %w", errs)
	}

	if err := s.repo.Candidate().Create(ctx, s.db, candidate); err != nil {
		if !repositories.IsDuplicateError(err) {
			return nil, false, fmt.Errorf("failed to create candidate: %w", err)
		}
		// a concurrent registration of the same account wins; otherwise the phone collided
		if existing, getErr := s.repo.Candidate().GetByTelegramID(ctx, s.db, req.TelegramID); getErr == nil {
			return existing, false, nil
		}
		return nil, false, ErrPhoneTaken
	}

	s.logger.Info("Candidate registered",
		"candidate_id", candidate.ID,
		"telegram_id", candidate.TelegramID,
		"cohort_kind", candidate.CohortKind)

	return candidate, true, nil
}

func (s *candidateService) GetByTelegramID(ctx context.Context, telegramID int64) (*models.Candidate, error) {
	candidate, err := s.repo.Candidate().GetByTelegramID(ctx, s.db, telegramID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return candidate, nil
}

// ===== PROFILE UPDATES =====

func (s *candidateService) UpdateLanguage(ctx context.Context, telegramID int64, req *UpdateLanguageRequest) (*models.Candidate, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	candidate, err := s.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	lang := models.ParseLanguage(req.Language)
	if err := s.repo.Candidate().UpdateLanguage(ctx, s.db, candidate.ID, lang); err != nil {
		return nil, fmt.Errorf("failed to update language: %w", err)
	}
	candidate.Language = lang

	s.logger.Info("Candidate language updated", "candidate_id", candidate.ID, "language", lang)
	return candidate, nil
}

func (s *candidateService) UpdatePhone(ctx context.Context, telegramID int64, req *UpdatePhoneRequest) (*models.Candidate, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	candidate, err := s.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	phone := strings.TrimSpace(req.Phone)
	if err := s.repo.Candidate().UpdatePhone(ctx, s.db, candidate.ID, phone); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrPhoneTaken
		}
		return nil, fmt.Errorf("failed to update phone: %w", err)
	}
	candidate.Phone = &phone

	s.logger.Info("Candidate phone updated", "candidate_id", candidate.ID)
	return candidate, nil
}

// ===== HELPERS =====

func candidateFromRequest(req *RegisterCandidateRequest) *models.Candidate {
	year := req.CourseYear

	candidate := &models.Candidate{
		TelegramID:    req.TelegramID,
		Username:      req.Username,
		FullName:      strings.Join(strings.Fields(req.FullName), " "),
		Phone:         req.Phone,
		Language:      models.ParseLanguage(req.Language),
		CohortKind:    req.CohortKind,
		EducationType: req.EducationType,
		InstitutionID: req.InstitutionID,
		Institution:   req.Institution,
		CourseYear:    &year,
		IsActive:      true,
	}
	// standard cohorts carry no level or faculty
	if req.CohortKind.RequiresLevel() {
		candidate.EducationLevelID = req.EducationLevelID
		candidate.EducationLevel = req.EducationLevel
	}
	if req.CohortKind.RequiresFaculty() {
		candidate.FacultyID = req.FacultyID
		candidate.Faculty = req.Faculty
	}
	return candidate
}
