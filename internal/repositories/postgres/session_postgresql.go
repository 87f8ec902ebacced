package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

func (s *SessionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, session *models.ExamSession) error {
	db := getDB(s.db, tx)
	return db.WithContext(ctx).Omit(clause.Associations).Create(session).Error
}

func (s *SessionPostgreSQL) GetByToken(ctx context.Context, tx *gorm.DB, token string) (*models.ExamSession, error) {
	db := getDB(s.db, tx)
	var session models.ExamSession
	if err := db.WithContext(ctx).Where("token = ?", token).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetByTokenWithAnswers(ctx context.Context, tx *gorm.DB, token string) (*models.ExamSession, error) {
	db := getDB(s.db, tx)
	var session models.ExamSession
	if err := db.WithContext(ctx).
		Preload("Answers").
		Preload("Candidate").
		Where("token = ?", token).
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) HasGraded(ctx context.Context, tx *gorm.DB, candidateID uint) (bool, error) {
	db := getDB(s.db, tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.ExamSession{}).
		Where("candidate_id = ? AND score IS NOT NULL", candidateID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count graded sessions: %w", err)
	}
	return count > 0, nil
}

func (s *SessionPostgreSQL) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamSession, error) {
	db := getDB(s.db, tx)
	var session models.ExamSession
	if err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) UpdatePosition(ctx context.Context, tx *gorm.DB, id uint, position int) error {
	db := getDB(s.db, tx)
	res := db.WithContext(ctx).
		Model(&models.ExamSession{}).
		Where("id = ? AND status = ?", id, models.SessionInProgress).
		Update("position", position)
	if res.Error != nil {
		return fmt.Errorf("failed to update position: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrConflict
	}
	return nil
}

func (s *SessionPostgreSQL) ClaimSubmission(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	db := getDB(s.db, tx)
	res := db.WithContext(ctx).
		Model(&models.ExamSession{}).
		Where("id = ? AND status = ?", id, models.SessionInProgress).
		Update("status", models.SessionSubmitted)
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim submission: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *SessionPostgreSQL) SaveGrade(ctx context.Context, tx *gorm.DB, id uint, grade *repositories.SessionGrade) error {
	db := getDB(s.db, tx)
	res := db.WithContext(ctx).
		Model(&models.ExamSession{}).
		Where("id = ? AND status = ?", id, models.SessionSubmitted).
		Updates(map[string]interface{}{
			"status":          models.SessionGraded,
			"score":           grade.Score,
			"total_questions": grade.TotalQuestions,
			"percentage":      grade.Percentage,
			"tier":            grade.Tier,
			"grading_token":   grade.GradingToken,
			"elapsed_seconds": grade.ElapsedSeconds,
			"completed_at":    grade.CompletedAt,
			"position":        gorm.Expr("jsonb_array_length(question_ids)"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to save grade: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrConflict
	}
	return nil
}

func (s *SessionPostgreSQL) MarkCertificateSent(ctx context.Context, tx *gorm.DB, id uint) error {
	db := getDB(s.db, tx)
	return db.WithContext(ctx).
		Model(&models.ExamSession{}).
		Where("id = ?", id).
		Update("certificate_sent", true).Error
}

func (s *SessionPostgreSQL) ListForExport(ctx context.Context, tx *gorm.DB, filters repositories.SessionFilters) ([]*models.ExamSession, error) {
	db := getDB(s.db, tx)
	var sessions []*models.ExamSession
	query := applySessionFilters(db.WithContext(ctx).Model(&models.ExamSession{}), filters)
	if err := query.Preload("Candidate").Order("started_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// ===== ANSWERS =====

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (a *AnswerPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, answer *models.SessionAnswer) error {
	db := getDB(a.db, tx)
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"answer", "updated_at"}),
	}).Create(answer).Error
}

func (a *AnswerPostgreSQL) GetBySession(ctx context.Context, tx *gorm.DB, sessionID uint) ([]*models.SessionAnswer, error) {
	db := getDB(a.db, tx)
	var answers []*models.SessionAnswer
	if err := db.WithContext(ctx).Where("session_id = ?", sessionID).Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}
	return answers, nil
}
