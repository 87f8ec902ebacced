package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type CandidatePostgreSQL struct {
	db *gorm.DB
}

func NewCandidatePostgreSQL(db *gorm.DB) repositories.CandidateRepository {
	return &CandidatePostgreSQL{db: db}
}

func (c *CandidatePostgreSQL) Create(ctx context.Context, tx *gorm.DB, candidate *models.Candidate) error {
	db := getDB(c.db, tx)
	return db.WithContext(ctx).Create(candidate).Error
}

func (c *CandidatePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Candidate, error) {
	db := getDB(c.db, tx)
	var candidate models.Candidate
	if err := db.WithContext(ctx).First(&candidate, id).Error; err != nil {
		return nil, err
	}
	return &candidate, nil
}

func (c *CandidatePostgreSQL) GetByTelegramID(ctx context.Context, tx *gorm.DB, telegramID int64) (*models.Candidate, error) {
	db := getDB(c.db, tx)
	var candidate models.Candidate
	if err := db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&candidate).Error; err != nil {
		return nil, err
	}
	return &candidate, nil
}

func (c *CandidatePostgreSQL) UpdateLanguage(ctx context.Context, tx *gorm.DB, id uint, lang models.Language) error {
	return c.updateColumn(ctx, tx, id, "language", lang)
}

func (c *CandidatePostgreSQL) UpdatePhone(ctx context.Context, tx *gorm.DB, id uint, phone string) error {
	return c.updateColumn(ctx, tx, id, "phone", phone)
}

func (c *CandidatePostgreSQL) updateColumn(ctx context.Context, tx *gorm.DB, id uint, column string, value interface{}) error {
	db := getDB(c.db, tx)
	res := db.WithContext(ctx).Model(&models.Candidate{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("failed to update candidate %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
