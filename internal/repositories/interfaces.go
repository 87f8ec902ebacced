package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// SubjectRepository interface for subject lookups
type SubjectRepository interface {
	Create(ctx context.Context, tx *gorm.DB, subject *models.Subject) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Subject, error)
	// ListActive returns active subjects ordered by id
	ListActive(ctx context.Context, tx *gorm.DB) ([]*models.Subject, error)
}

// QuestionRepository interface for question-specific operations
type QuestionRepository interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)

	// ActiveIDs lists active questions of a subject with a document in lang
	ActiveIDs(ctx context.Context, tx *gorm.DB, subjectID uint, lang models.Language) ([]uint, error)

	// AnswerKey returns the correct answer of each question
	AnswerKey(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]models.AnswerSymbol, error)

	SetActive(ctx context.Context, tx *gorm.DB, id uint, active bool) error
}

// CandidateRepository interface for candidate records
type CandidateRepository interface {
	Create(ctx context.Context, tx *gorm.DB, candidate *models.Candidate) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Candidate, error)
	GetByTelegramID(ctx context.Context, tx *gorm.DB, telegramID int64) (*models.Candidate, error)
	UpdateLanguage(ctx context.Context, tx *gorm.DB, id uint, lang models.Language) error
	UpdatePhone(ctx context.Context, tx *gorm.DB, id uint, phone string) error
}

// SessionRepository interface for exam sessions
type SessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *models.ExamSession) error
	GetByToken(ctx context.Context, tx *gorm.DB, token string) (*models.ExamSession, error)
	// GetByTokenWithAnswers preloads answers
	GetByTokenWithAnswers(ctx context.Context, tx *gorm.DB, token string) (*models.ExamSession, error)
	HasGraded(ctx context.Context, tx *gorm.DB, candidateID uint) (bool, error)

	// GetByIDForUpdate locks the row until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamSession, error)

	UpdatePosition(ctx context.Context, tx *gorm.DB, id uint, position int) error

	// ClaimSubmission moves an in-progress session to submitted. It returns
	// false when another caller already claimed it.
	ClaimSubmission(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
	// SaveGrade writes every grading column in one statement
	SaveGrade(ctx context.Context, tx *gorm.DB, id uint, grade *SessionGrade) error
	MarkCertificateSent(ctx context.Context, tx *gorm.DB, id uint) error

	ListForExport(ctx context.Context, tx *gorm.DB, filters SessionFilters) ([]*models.ExamSession, error)
}

// AnswerRepository interface for recorded answers
type AnswerRepository interface {
	// Upsert keeps the latest answer per (session, question)
	Upsert(ctx context.Context, tx *gorm.DB, answer *models.SessionAnswer) error
	GetBySession(ctx context.Context, tx *gorm.DB, sessionID uint) ([]*models.SessionAnswer, error)
}

// ===== SHARED FILTER STRUCTS =====

type SessionFilters struct {
	Status   *models.SessionStatus `json:"status"`
	DateFrom *time.Time            `json:"date_from"`
	DateTo   *time.Time            `json:"date_to"`
	Limit    int                   `json:"limit"`
	Offset   int                   `json:"offset"`
}

// ===== SHARED HELPER STRUCTS =====

// SessionGrade holds the columns set by the submit transition.
type SessionGrade struct {
	Score          int
	TotalQuestions int
	Percentage     float64
	Tier           models.Tier
	GradingToken   string
	ElapsedSeconds *int
	CompletedAt    time.Time
}
