package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type SubjectPostgreSQL struct {
	db    *gorm.DB
	cache *cache.CacheHelper
}

func NewSubjectPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.SubjectRepository {
	return &SubjectPostgreSQL{db: db, cache: cacheManager.Subject}
}

func (s *SubjectPostgreSQL) Create(ctx context.Context, tx *gorm.DB, subject *models.Subject) error {
	db := getDB(s.db, tx)
	if err := db.WithContext(ctx).Create(subject).Error; err != nil {
		return fmt.Errorf("failed to create subject: %w", err)
	}
	cache.SafeDelete(ctx, s.cache, cache.ActiveSubjectsKey)
	return nil
}

func (s *SubjectPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Subject, error) {
	db := getDB(s.db, tx)
	var subject models.Subject
	if err := db.WithContext(ctx).First(&subject, id).Error; err != nil {
		return nil, err
	}
	return &subject, nil
}

func (s *SubjectPostgreSQL) ListActive(ctx context.Context, tx *gorm.DB) ([]*models.Subject, error) {
	db := getDB(s.db, tx)
	fetch := func() (interface{}, error) {
		var subjects []*models.Subject
		if err := db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&subjects).Error; err != nil {
			return nil, fmt.Errorf("failed to list active subjects: %w", err)
		}
		return subjects, nil
	}

	// read through the transaction without touching the cache
	if tx != nil {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		return v.([]*models.Subject), nil
	}

	var subjects []*models.Subject
	err := s.cache.CacheOrExecute(ctx, cache.ActiveSubjectsKey, &subjects, cache.SubjectCacheConfig.TTL, fetch)
	return subjects, err
}
