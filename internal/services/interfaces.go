package services

import (
	"context"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

// ===== SESSION RELATED DTOs =====

type CreateSessionRequest struct {
	CandidateID uint `json:"candidate_id" validate:"required"`
	// Force starts a new attempt even after a graded one
	Force bool `json:"force"`
}

type SessionCreatedResponse struct {
	SessionID      string `json:"session_id"`
	TotalQuestions int    `json:"total_questions"`
}

// AnswerRequest records an optional answer and then moves the session
type AnswerRequest struct {
	QuestionID     uint   `json:"question_id"`
	Answer         string `json:"answer" validate:"omitempty,answer_symbol"`
	Action         string `json:"action" validate:"required,session_action"`
	ElapsedSeconds *int   `json:"elapsed_seconds" validate:"omitempty,min=0"`
}

type QuestionView struct {
	QuestionID uint   `json:"question_id"`
	Content    string `json:"content"`
	// Rendered is false when Content is the placeholder
	Rendered       bool                 `json:"rendered"`
	Position       int                  `json:"position"`
	Total          int                  `json:"total"`
	PreviousAnswer *models.AnswerSymbol `json:"previous_answer,omitempty"`
}

// SessionStateResponse is either the current question or a finished marker.
// ReadyToSubmit is set when every question was passed and the session
// awaits submit.
type SessionStateResponse struct {
	Finished      bool            `json:"finished"`
	ReadyToSubmit bool            `json:"ready_to_submit"`
	Question      *QuestionView   `json:"question,omitempty"`
	Result        *ResultResponse `json:"result,omitempty"`
}

type ResultResponse struct {
	SessionID    string      `json:"session_id"`
	Score        int         `json:"score"`
	Total        int         `json:"total"`
	Percentage   float64     `json:"percentage"`
	Tier         models.Tier `json:"tier"`
	GradingToken string      `json:"grading_token"`
	Message      string      `json:"message"`
	CompletedAt  time.Time   `json:"completed_at"`
}

// ===== QUESTION RELATED DTOs =====

type ImportQuestionsRequest struct {
	SubjectID uint
	Documents map[models.Language][]byte
	AnswerKey string
	// Delimiter falls back to the configured default when blank
	Delimiter string
}

type ImportQuestionsResponse struct {
	Created   int               `json:"created"`
	IDs       []uint            `json:"ids"`
	Languages []models.Language `json:"languages"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// ===== CANDIDATE RELATED DTOs =====

type RegisterCandidateRequest struct {
	TelegramID int64   `json:"telegram_id" validate:"required"`
	Username   *string `json:"username" validate:"omitempty,max=100"`
	FullName   string  `json:"full_name" validate:"required,max=150"`
	Phone      *string `json:"phone" validate:"omitempty,phone"`
	Language   string  `json:"language" validate:"omitempty,language"`

	CohortKind       models.CohortKind `json:"cohort_kind" validate:"required,cohort_kind"`
	EducationType    *string           `json:"education_type" validate:"omitempty,max=150"`
	InstitutionID    *uint             `json:"institution_id"`
	Institution      *string           `json:"institution" validate:"omitempty,max=255"`
	EducationLevelID *uint             `json:"education_level_id"`
	EducationLevel   *string           `json:"education_level" validate:"omitempty,max=150"`
	FacultyID        *uint             `json:"faculty_id"`
	Faculty          *string           `json:"faculty" validate:"omitempty,max=255"`
	CourseYear       int               `json:"course_year" validate:"required,min=1,max=11"`
}

type UpdateLanguageRequest struct {
	Language string `json:"language" validate:"required,language"`
}

type UpdatePhoneRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
}

// ===== SERVICE INTERFACES =====

type SessionService interface {
	Create(ctx context.Context, req *CreateSessionRequest) (*SessionCreatedResponse, error)
	Current(ctx context.Context, token string) (*SessionStateResponse, error)

	// State transitions within in_progress
	RecordAnswer(ctx context.Context, token string, questionID uint, symbol models.AnswerSymbol) error
	Advance(ctx context.Context, token string) (*SessionStateResponse, error)
	Retreat(ctx context.Context, token string) (*SessionStateResponse, error)
	Answer(ctx context.Context, token string, req *AnswerRequest) (*SessionStateResponse, error)

	// Submit grades the session once; repeated calls return the stored result
	Submit(ctx context.Context, token string, elapsedSeconds *int) (*ResultResponse, error)
	Result(ctx context.Context, token string) (*ResultResponse, error)
}

type QuestionService interface {
	Import(ctx context.Context, req *ImportQuestionsRequest) (*ImportQuestionsResponse, error)
	SetActive(ctx context.Context, id uint, active bool) error
}

type CandidateService interface {
	// Register is idempotent by telegram id; created is false for a known candidate
	Register(ctx context.Context, req *RegisterCandidateRequest) (candidate *models.Candidate, created bool, err error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.Candidate, error)
	UpdateLanguage(ctx context.Context, telegramID int64, req *UpdateLanguageRequest) (*models.Candidate, error)
	UpdatePhone(ctx context.Context, telegramID int64, req *UpdatePhoneRequest) (*models.Candidate, error)
}

type ExportService interface {
	// Sessions builds the results workbook and its download name
	Sessions(ctx context.Context, filters repositories.SessionFilters) (*excelize.File, string, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Session() SessionService
	Question() QuestionService
	Candidate() CandidateService
	Export() ExportService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
