package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/metrics"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/splitter"
	"github.com/SAP-F-2025/exam-service/internal/storage"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

type questionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	config    ExamConfig

	storage   storage.Provider
	publisher events.EventPublisher
	metrics   *metrics.Metrics
}

func NewQuestionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, deps Dependencies, cfg ExamConfig) QuestionService {
	return &questionService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		config:    cfg,
		storage:   deps.Storage,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
	}
}

// ===== INGESTION =====

// Import splits the uploaded documents into one package per question and
// language, stores them and creates the question rows. Either every question
// of the upload is created or none is.
func (s *questionService) Import(ctx context.Context, req *ImportQuestionsRequest) (*ImportQuestionsResponse, error) {
	s.logger.Info("Importing questions",
		"subject_id", req.SubjectID,
		"languages", len(req.Documents))

	if errs := s.validator.ValidateUpload(req.SubjectID, req.Documents, req.AnswerKey); len(errs) > 0 {
		s.metrics.ImportFailed("validation")
		return nil, fmt.Errorf("validation failed: %w", errs)
	}

	if _, err := s.repo.Subject().GetByID(ctx, s.db, req.SubjectID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubjectNotFound
		}
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}

	delimiter := req.Delimiter
	if delimiter == "" {
		delimiter = s.config.DefaultDelimiter
	}

	split, err := splitter.Split(req.Documents, req.AnswerKey, delimiter)
	if err != nil {
		s.metrics.ImportFailed("split")
		s.logger.Warn("Question upload rejected", "subject_id", req.SubjectID, "error", err)
		return nil, err
	}

	plan := newBlobPlan(req.SubjectID, uuid.NewString())
	questions := make([]*models.Question, 0, len(split))
	for i, q := range split {
		question := &models.Question{
			SubjectID:     req.SubjectID,
			CorrectAnswer: q.Answer,
			IsActive:      true,
		}
		for _, lang := range models.Languages {
			doc, ok := q.Documents[lang]
			if !ok {
				continue
			}
			key := plan.key(lang, i+1)
			if err := s.storage.Put(ctx, key, doc, storage.DocxContentType); err != nil {
				s.metrics.ImportFailed("storage")
				s.discard(ctx, plan)
				return nil, fmt.Errorf("%w: %w", ErrStorageFailed, err)
			}
			plan.stored = append(plan.stored, key)
			question.SetDocumentKey(lang, key)
		}
		questions = append(questions, question)
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		return txRepo.Question().CreateBatch(ctx, nil, questions)
	})
	if err != nil {
		s.metrics.ImportFailed("database")
		s.discard(ctx, plan)
		return nil, fmt.Errorf("failed to create questions: %w", err)
	}

	resp := &ImportQuestionsResponse{
		Created:   len(questions),
		IDs:       make([]uint, 0, len(questions)),
		Languages: uploadedLanguages(split),
	}
	for _, q := range questions {
		resp.IDs = append(resp.IDs, q.ID)
	}

	s.metrics.QuestionsImported(resp.Created)
	s.publishImported(ctx, req.SubjectID, resp)

	s.logger.Info("Questions imported",
		"subject_id", req.SubjectID,
		"created", resp.Created,
		"batch", plan.batch)

	return resp, nil
}

// ===== QUESTION BANK MANAGEMENT =====

func (s *questionService) SetActive(ctx context.Context, id uint, active bool) error {
	s.logger.Info("Setting question activation", "question_id", id, "active", active)

	if err := s.repo.Question().SetActive(ctx, s.db, id, active); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to update question: %w", err)
	}
	return nil
}

// ===== HELPERS =====

// blobPlan names the objects of one upload batch:
// questions/<subject>/<batch>/q_<lang>_<subject>_<n>.docx
type blobPlan struct {
	subjectID uint
	batch     string
	stored    []string
}

func newBlobPlan(subjectID uint, batch string) *blobPlan {
	return &blobPlan{subjectID: subjectID, batch: batch}
}

func (p *blobPlan) key(lang models.Language, n int) string {
	return fmt.Sprintf("questions/%d/%s/q_%s_%d_%d.docx", p.subjectID, p.batch, lang, p.subjectID, n)
}

// discard removes the blobs of a failed upload; leftovers are only logged
func (s *questionService) discard(ctx context.Context, plan *blobPlan) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range plan.stored {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Warn("Failed to delete orphaned question document", "key", key, "error", err)
		}
	}
}

func (s *questionService) publishImported(ctx context.Context, subjectID uint, resp *ImportQuestionsResponse) {
	if s.publisher == nil {
		return
	}
	languages := make([]string, 0, len(resp.Languages))
	for _, lang := range resp.Languages {
		languages = append(languages, string(lang))
	}
	event := events.NewEvent(events.TypeQuestionsImported, events.QuestionsImportedEvent{
		SubjectID: subjectID,
		Count:     resp.Created,
		Languages: languages,
	})
	if err := s.publisher.Publish(ctx, s.config.EventsTopic, event); err != nil {
		s.logger.Error("Failed to publish questions imported event", "subject_id", subjectID, "error", err)
	}
}

func uploadedLanguages(questions []splitter.Question) []models.Language {
	if len(questions) == 0 {
		return nil
	}
	var out []models.Language
	for _, lang := range models.Languages {
		if _, ok := questions[0].Documents[lang]; ok {
			out = append(out, lang)
		}
	}
	return out
}
