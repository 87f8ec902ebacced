package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/i18n"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

// repositoryQuestionSource feeds the selector from the repositories
type repositoryQuestionSource struct {
	repo repositories.Repository
	db   *gorm.DB
}

func (q *repositoryQuestionSource) ActiveSubjects(ctx context.Context) ([]*models.Subject, error) {
	return q.repo.Subject().ListActive(ctx, q.db)
}

func (q *repositoryQuestionSource) ActiveQuestionIDs(ctx context.Context, subjectID uint, lang models.Language) ([]uint, error) {
	return q.repo.Question().ActiveIDs(ctx, q.db, subjectID, lang)
}

// ===== LOADING =====

func (s *sessionService) loadSession(ctx context.Context, token string, withAnswers bool) (*models.ExamSession, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrSessionNotFound
	}

	var (
		session *models.ExamSession
		err     error
	)
	if withAnswers {
		session, err = s.repo.Session().GetByTokenWithAnswers(ctx, s.db, token)
	} else {
		session, err = s.repo.Session().GetByToken(ctx, s.db, token)
	}
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// ===== NAVIGATION =====

func (s *sessionService) move(ctx context.Context, token string, delta int) (*SessionStateResponse, error) {
	session, err := s.loadSession(ctx, token, true)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionInProgress {
		return s.stateOf(ctx, session)
	}

	finished := false
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		locked, err := txRepo.Session().GetByIDForUpdate(ctx, nil, session.ID)
		if err != nil {
			return fmt.Errorf("failed to lock session: %w", err)
		}
		if locked.Status != models.SessionInProgress {
			finished = true
			return nil
		}

		position := locked.ClampPosition(locked.Position + delta)
		if position != locked.Position {
			if err := txRepo.Session().UpdatePosition(ctx, nil, locked.ID, position); err != nil {
				return err
			}
		}
		session.Position = position
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			finished = true
		} else {
			return nil, fmt.Errorf("failed to move session: %w", err)
		}
	}

	if finished {
		return s.Current(ctx, token)
	}
	return s.stateOf(ctx, session)
}

// stateOf describes the session: its result once graded, a finished marker
// past the last question, or the current question.
func (s *sessionService) stateOf(ctx context.Context, session *models.ExamSession) (*SessionStateResponse, error) {
	if session.IsGraded() {
		_, result, err := s.loadGraded(ctx, session.Token)
		if err != nil {
			return nil, err
		}
		return &SessionStateResponse{Finished: true, Result: result}, nil
	}
	if session.Status != models.SessionInProgress {
		return &SessionStateResponse{Finished: true}, nil
	}

	questionID, ok := session.CurrentQuestionID()
	if !ok {
		return &SessionStateResponse{Finished: true, ReadyToSubmit: true}, nil
	}

	view := &QuestionView{
		QuestionID: questionID,
		Position:   session.Position,
		Total:      session.Total(),
	}
	if previous, ok := session.AnswerMap()[questionID]; ok {
		view.PreviousAnswer = &previous
	}
	view.Content, view.Rendered = s.render(ctx, questionID, session.Language)

	return &SessionStateResponse{Question: view}, nil
}

// render never fails; a missing or broken document yields the placeholder.
func (s *sessionService) render(ctx context.Context, questionID uint, lang models.Language) (string, bool) {
	load := func(ctx context.Context) ([]byte, error) {
		question, err := s.repo.Question().GetByID(ctx, s.db, questionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get question %d: %w", questionID, err)
		}
		key, ok := question.DocumentKey(lang)
		if !ok {
			return nil, fmt.Errorf("question %d has no %s document", questionID, lang)
		}
		return s.storage.Get(ctx, key)
	}

	markup, ok := s.renderer.Render(ctx, cache.RenderKey(questionID, lang), load)
	if !ok {
		s.metrics.RenderFailed()
	}
	return markup, ok
}

// ===== RESULTS =====

func (s *sessionService) cachedResult(ctx context.Context, token string) (*ResultResponse, bool) {
	var result ResultResponse
	if err := s.results.Get(ctx, cache.ResultKey(token), &result); err != nil {
		return nil, false
	}
	return &result, true
}

func (s *sessionService) storedResult(ctx context.Context, token string) (*ResultResponse, error) {
	_, result, err := s.loadGraded(ctx, token)
	return result, err
}

// loadGraded reads a graded session with its candidate and caches the result
func (s *sessionService) loadGraded(ctx context.Context, token string) (*models.ExamSession, *ResultResponse, error) {
	session, err := s.loadSession(ctx, token, true)
	if err != nil {
		return nil, nil, err
	}
	if !session.IsGraded() {
		return nil, nil, ErrSessionNotGraded
	}

	result := s.toResult(session)
	if err := s.results.Set(ctx, cache.ResultKey(token), result, s.config.ResultCacheTTL); err != nil {
		s.logger.Warn("Failed to cache session result", "session_id", session.ID, "error", err)
	}
	return session, result, nil
}

func (s *sessionService) toResult(session *models.ExamSession) *ResultResponse {
	result := &ResultResponse{
		SessionID: session.Token,
		Total:     session.TotalQuestions,
	}
	if session.Score != nil {
		result.Score = *session.Score
	}
	if session.Percentage != nil {
		result.Percentage = *session.Percentage
	}
	if session.Tier != nil {
		result.Tier = *session.Tier
	}
	if session.GradingToken != nil {
		result.GradingToken = *session.GradingToken
	}
	if session.CompletedAt != nil {
		result.CompletedAt = *session.CompletedAt
	}

	if s.translator != nil {
		result.Message = s.translator.Result(string(s.messageLanguage(session)), i18n.ResultMessage{
			Name:       session.Candidate.DisplayName(),
			Score:      result.Score,
			Total:      result.Total,
			Percentage: result.Percentage,
			Passed:     result.Tier == models.TierPass,
			Threshold:  s.config.Policy.PassThreshold,
			Phone:      s.config.ContactPhone,
		})
	}
	return result
}

// messageLanguage prefers the candidate's current interface language
func (s *sessionService) messageLanguage(session *models.ExamSession) models.Language {
	if session.Candidate.Language.IsValid() {
		return session.Candidate.Language
	}
	if session.Language.IsValid() {
		return session.Language
	}
	return s.config.DefaultLanguage
}

func answerMap(answers []*models.SessionAnswer) map[uint]models.AnswerSymbol {
	out := make(map[uint]models.AnswerSymbol, len(answers))
	for _, a := range answers {
		out[a.QuestionID] = a.Answer
	}
	return out
}

// sanitizeElapsed drops negative client reports
func sanitizeElapsed(seconds *int) *int {
	if seconds == nil || *seconds < 0 {
		return nil
	}
	v := *seconds
	return &v
}
