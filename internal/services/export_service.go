package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/export"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type exportService struct {
	repo     repositories.Repository
	db       *gorm.DB
	logger   *slog.Logger
	location *time.Location
	now      func() time.Time
}

func NewExportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, location *time.Location, now func() time.Time) ExportService {
	if location == nil {
		location = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &exportService{
		repo:     repo,
		db:       db,
		logger:   logger,
		location: location,
		now:      now,
	}
}

func (s *exportService) Sessions(ctx context.Context, filters repositories.SessionFilters) (*excelize.File, string, error) {
	sessions, err := s.repo.Session().ListForExport(ctx, s.db, filters)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list sessions: %w", err)
	}

	file, err := export.SessionsWorkbook(sessions, s.location)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build workbook: %w", err)
	}

	s.logger.Info("Sessions exported", "rows", len(sessions))
	return file, export.Filename(s.now().In(s.location)), nil
}
