package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/certificate"
	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/i18n"
	"github.com/SAP-F-2025/exam-service/internal/metrics"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/rendering"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/scoring"
	"github.com/SAP-F-2025/exam-service/internal/selection"
	"github.com/SAP-F-2025/exam-service/internal/storage"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

type sessionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	config    ExamConfig

	selector     *selection.Selector
	storage      storage.Provider
	renderer     *rendering.Cached
	results      *cache.CacheHelper
	translator   *i18n.Translator
	notifier     *events.AsyncPublisher
	certificates *certificate.Dispatcher
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewSessionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, deps Dependencies, cfg ExamConfig) SessionService {
	caches := deps.Cache
	if caches == nil {
		caches = cache.NewCacheManager(nil)
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = rendering.NewCached(rendering.NewDocxRenderer(), caches.Render, 0, logger)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	if cfg.ResultCacheTTL <= 0 {
		cfg.ResultCacheTTL = cache.SessionCacheConfig.TTL
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	notifier := deps.Notifier
	if notifier == nil && deps.Publisher != nil {
		notifier = events.NewAsyncPublisher(deps.Publisher, 5*time.Second, logger)
	}

	return &sessionService{
		repo:         repo,
		db:           db,
		logger:       logger,
		validator:    validator,
		config:       cfg,
		selector:     selection.NewSelector(&repositoryQuestionSource{repo: repo, db: db}, deps.Rand),
		storage:      deps.Storage,
		renderer:     renderer,
		results:      caches.Session,
		translator:   deps.Translator,
		notifier:     notifier,
		certificates: deps.Certificates,
		metrics:      deps.Metrics,
		now:          now,
	}
}

// ===== CORE SESSION OPERATIONS =====

func (s *sessionService) Create(ctx context.Context, req *CreateSessionRequest) (*SessionCreatedResponse, error) {
	s.logger.Info("Creating exam session", "candidate_id", req.CandidateID, "force", req.Force)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	candidate, err := s.repo.Candidate().GetByID(ctx, s.db, req.CandidateID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}

	if !req.Force {
		graded, err := s.repo.Session().HasGraded(ctx, s.db, candidate.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check previous sessions: %w", err)
		}
		if graded {
			return nil, ErrAlreadyCompleted
		}
	}

	lang := candidate.Language
	if !lang.IsValid() {
		lang = s.config.DefaultLanguage
	}

	ids, err := s.selector.Select(ctx, candidate.Cohort(), lang, s.config.QuestionsPerSubject)
	if err != nil {
		if errors.Is(err, selection.ErrNoEligibleContent) {
			s.logger.Warn("No eligible questions for candidate",
				"candidate_id", candidate.ID,
				"language", lang,
				"year", candidate.Cohort().Year)
			return nil, ErrNoEligibleContent
		}
		return nil, fmt.Errorf("failed to select questions: %w", err)
	}

	session := &models.ExamSession{
		Token:          uuid.NewString(),
		CandidateID:    candidate.ID,
		Language:       lang,
		Status:         models.SessionInProgress,
		QuestionIDs:    datatypes.JSONSlice[uint](ids),
		Position:       0,
		StartedAt:      s.now(),
		TotalQuestions: len(ids),
	}
	if err := s.repo.Session().Create(ctx, s.db, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.metrics.SessionCreated()
	s.logger.Info("Exam session created",
		"session_id", session.ID,
		"candidate_id", candidate.ID,
		"questions", len(ids))

	return &SessionCreatedResponse{SessionID: session.Token, TotalQuestions: len(ids)}, nil
}

func (s *sessionService) Current(ctx context.Context, token string) (*SessionStateResponse, error) {
	session, err := s.loadSession(ctx, token, true)
	if err != nil {
		return nil, err
	}
	return s.stateOf(ctx, session)
}

// ===== STATE TRANSITIONS =====

func (s *sessionService) RecordAnswer(ctx context.Context, token string, questionID uint, symbol models.AnswerSymbol) error {
	symbol = models.NormalizeAnswer(string(symbol))
	if !symbol.IsValid() {
		return fmt.Errorf("%w: answer must be one of A, B, C, D", ErrValidationFailed)
	}

	session, err := s.loadSession(ctx, token, false)
	if err != nil {
		return err
	}
	if session.Status != models.SessionInProgress {
		return ErrSessionAlreadyGraded
	}
	if !session.Contains(questionID) {
		return ErrAnswerForeignToSession
	}

	// the row lock orders this write before or after a concurrent submit claim
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		locked, err := txRepo.Session().GetByIDForUpdate(ctx, nil, session.ID)
		if err != nil {
			return fmt.Errorf("failed to lock session: %w", err)
		}
		if locked.Status != models.SessionInProgress {
			return ErrSessionAlreadyGraded
		}
		return txRepo.Answer().Upsert(ctx, nil, &models.SessionAnswer{
			SessionID:  session.ID,
			QuestionID: questionID,
			Answer:     symbol,
		})
	})
	if err != nil {
		if errors.Is(err, ErrSessionAlreadyGraded) {
			return err
		}
		return fmt.Errorf("failed to record answer: %w", err)
	}

	s.logger.Debug("Answer recorded", "session_id", session.ID, "question_id", questionID)
	return nil
}

func (s *sessionService) Advance(ctx context.Context, token string) (*SessionStateResponse, error) {
	return s.move(ctx, token, 1)
}

func (s *sessionService) Retreat(ctx context.Context, token string) (*SessionStateResponse, error) {
	return s.move(ctx, token, -1)
}

// Answer records the optional answer and then applies the action.
func (s *sessionService) Answer(ctx context.Context, token string, req *AnswerRequest) (*SessionStateResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if req.Answer != "" {
		if req.QuestionID == 0 {
			return nil, fmt.Errorf("%w: question_id is required with an answer", ErrValidationFailed)
		}
		err := s.RecordAnswer(ctx, token, req.QuestionID, models.AnswerSymbol(req.Answer))
		// a repeated submit after grading still returns the stored result
		if err != nil && !(errors.Is(err, ErrSessionAlreadyGraded) && req.Action == validator.ActionSubmit) {
			return nil, err
		}
	}

	switch req.Action {
	case validator.ActionNext:
		return s.Advance(ctx, token)
	case validator.ActionPrev:
		return s.Retreat(ctx, token)
	case validator.ActionSubmit:
		result, err := s.Submit(ctx, token, req.ElapsedSeconds)
		if err != nil {
			return nil, err
		}
		return &SessionStateResponse{Finished: true, Result: result}, nil
	default:
		return nil, ErrInvalidAction
	}
}

// Submit grades the session exactly once. Concurrent and repeated calls
// observe the same stored result.
func (s *sessionService) Submit(ctx context.Context, token string, elapsedSeconds *int) (*ResultResponse, error) {
	if result, ok := s.cachedResult(ctx, token); ok {
		return result, nil
	}

	session, err := s.loadSession(ctx, token, false)
	if err != nil {
		return nil, err
	}
	if session.IsGraded() {
		return s.storedResult(ctx, token)
	}

	s.logger.Info("Submitting exam session", "session_id", session.ID)

	var grade *repositories.SessionGrade
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		claimed, err := txRepo.Session().ClaimSubmission(ctx, nil, session.ID)
		if err != nil {
			return fmt.Errorf("failed to claim submission: %w", err)
		}
		if !claimed {
			return nil
		}

		answers, err := txRepo.Answer().GetBySession(ctx, nil, session.ID)
		if err != nil {
			return fmt.Errorf("failed to get answers: %w", err)
		}
		key, err := txRepo.Question().AnswerKey(ctx, nil, session.QuestionIDs)
		if err != nil {
			return fmt.Errorf("failed to get answer key: %w", err)
		}

		res := s.config.Policy.Grade(session.QuestionIDs, answerMap(answers), key)
		g := &repositories.SessionGrade{
			Score:          res.Correct,
			TotalQuestions: res.Total,
			Percentage:     res.Percentage,
			Tier:           res.Tier,
			GradingToken:   scoring.NewGradingToken(),
			ElapsedSeconds: sanitizeElapsed(elapsedSeconds),
			CompletedAt:    s.now(),
		}
		if err := txRepo.Session().SaveGrade(ctx, nil, session.ID, g); err != nil {
			return fmt.Errorf("failed to save grade: %w", err)
		}
		grade = g
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit session: %w", err)
	}

	graded, result, err := s.loadGraded(ctx, token)
	if err != nil {
		return nil, err
	}

	if grade == nil {
		s.logger.Info("Session already submitted by a concurrent request", "session_id", session.ID)
		return result, nil
	}

	s.logger.Info("Exam session graded",
		"session_id", session.ID,
		"score", grade.Score,
		"total", grade.TotalQuestions,
		"tier", grade.Tier)
	s.afterGrading(ctx, graded, result)

	return result, nil
}

func (s *sessionService) Result(ctx context.Context, token string) (*ResultResponse, error) {
	if result, ok := s.cachedResult(ctx, token); ok {
		return result, nil
	}
	return s.storedResult(ctx, token)
}

// ===== POST-GRADING SIDE EFFECTS =====

// afterGrading runs once per session, after the grading transaction committed.
// Failures here never undo the grade.
func (s *sessionService) afterGrading(ctx context.Context, session *models.ExamSession, result *ResultResponse) {
	tier := string(result.Tier)

	s.metrics.SessionGraded(tier)

	if s.notifier != nil {
		s.notifier.PublishAsync(ctx, s.config.EventsTopic, events.NewEvent(events.TypeExamGraded, events.ExamGradedEvent{
			SessionID:    session.ID,
			CandidateID:  session.CandidateID,
			TelegramID:   session.Candidate.TelegramID,
			Score:        result.Score,
			Total:        result.Total,
			Percentage:   result.Percentage,
			Tier:         tier,
			GradingToken: result.GradingToken,
		}))
	}

	if result.Tier == models.TierPass && s.certificates != nil {
		req := certificate.Request{
			SessionID:    session.ID,
			TelegramID:   session.Candidate.TelegramID,
			Template:     s.config.CertificateTemplate,
			FullName:     session.Candidate.NameParts(),
			Date:         result.CompletedAt.In(s.config.Location).Format(certificate.DateLayout),
			GradingToken: result.GradingToken,
			Score:        result.Score,
			Total:        result.Total,
			Percentage:   result.Percentage,
			Language:     string(s.messageLanguage(session)),
		}
		s.certificates.Dispatch(ctx, req, func(ctx context.Context) error {
			return s.repo.Session().MarkCertificateSent(ctx, s.db, session.ID)
		})
	}
}
