package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db, cacheManager: cacheManager}
}

func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	db := getDB(q.db, tx)
	if err := db.WithContext(ctx).CreateInBatches(questions, 100).Error; err != nil {
		return fmt.Errorf("failed to create questions: %w", err)
	}
	return nil
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := getDB(q.db, tx)
	var question models.Question
	err := q.cacheManager.Question.CacheOrExecute(ctx, cache.QuestionKey(id), &question, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var row models.Question
		if err := db.WithContext(ctx).First(&row, id).Error; err != nil {
			return nil, err
		}
		return &row, nil
	})
	if err != nil {
		return nil, err
	}
	// the answer letter is not serialized, so a cached row lacks it
	if question.CorrectAnswer == "" {
		key, err := q.AnswerKey(ctx, tx, []uint{id})
		if err != nil {
			return nil, err
		}
		question.CorrectAnswer = key[id]
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) ActiveIDs(ctx context.Context, tx *gorm.DB, subjectID uint, lang models.Language) ([]uint, error) {
	db := getDB(q.db, tx)
	var ids []uint
	err := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("subject_id = ? AND is_active = ?", subjectID, true).
		Where(documentPresent(lang)).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active questions: %w", err)
	}
	return ids, nil
}

func (q *QuestionPostgreSQL) AnswerKey(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]models.AnswerSymbol, error) {
	key := make(map[uint]models.AnswerSymbol, len(ids))
	if len(ids) == 0 {
		return key, nil
	}

	db := getDB(q.db, tx)
	var rows []struct {
		ID            uint
		CorrectAnswer models.AnswerSymbol
	}
	err := db.WithContext(ctx).
		Model(&models.Question{}).
		Select("id, correct_answer").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load answer key: %w", err)
	}
	for _, r := range rows {
		key[r.ID] = r.CorrectAnswer
	}
	return key, nil
}

func (q *QuestionPostgreSQL) SetActive(ctx context.Context, tx *gorm.DB, id uint, active bool) error {
	db := getDB(q.db, tx)
	res := db.WithContext(ctx).Model(&models.Question{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return fmt.Errorf("failed to update question: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	q.cacheManager.InvalidateQuestion(ctx, id)
	return nil
}
