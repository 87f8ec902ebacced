package models

import (
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionNotStarted SessionStatus = "not_started"
	SessionInProgress SessionStatus = "in_progress"
	SessionSubmitted  SessionStatus = "submitted"
	SessionGraded     SessionStatus = "graded"
)

type Tier string

const (
	TierPass Tier = "pass"
	TierFail Tier = "fail"
)

// ExamSession is one candidate's run through a fixed list of questions.
type ExamSession struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	Token       string        `json:"token" gorm:"uniqueIndex;size:36;not null"`
	CandidateID uint          `json:"candidate_id" gorm:"not null;index"`
	Language    Language      `json:"language" gorm:"size:3;not null"`
	Status      SessionStatus `json:"status" gorm:"size:20;default:in_progress;index"`

	// Assigned questions, fixed at creation
	QuestionIDs datatypes.JSONSlice[uint] `json:"question_ids" gorm:"type:jsonb;not null"`
	Position    int                       `json:"position" gorm:"not null;default:0"`

	// Timing
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	ElapsedSeconds *int       `json:"elapsed_seconds"` // client reported

	// Grading, written together by the submit transition
	Score           *int     `json:"score"`
	TotalQuestions  int      `json:"total_questions"`
	Percentage      *float64 `json:"percentage"`
	Tier            *Tier    `json:"tier" gorm:"size:10"`
	GradingToken    *string  `json:"grading_token" gorm:"uniqueIndex;size:20"`
	CertificateSent bool     `json:"certificate_sent" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Candidate Candidate       `json:"candidate" gorm:"foreignKey:CandidateID"`
	Answers   []SessionAnswer `json:"answers" gorm:"foreignKey:SessionID"`
}

// SessionAnswer is the latest recorded answer for one assigned question.
type SessionAnswer struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	SessionID  uint         `json:"session_id" gorm:"not null;uniqueIndex:idx_session_question"`
	QuestionID uint         `json:"question_id" gorm:"not null;uniqueIndex:idx_session_question"`
	Answer     AnswerSymbol `json:"answer" gorm:"size:1;not null"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (s *ExamSession) Total() int { return len(s.QuestionIDs) }

// IsGraded reports whether the terminal transition has happened.
func (s *ExamSession) IsGraded() bool {
	return s.Status == SessionGraded || s.Score != nil
}

// AtEnd reports whether every question has been passed.
func (s *ExamSession) AtEnd() bool { return s.Position >= s.Total() }

// CurrentQuestionID returns the question at the current position.
func (s *ExamSession) CurrentQuestionID() (uint, bool) {
	if s.Position < 0 || s.Position >= s.Total() {
		return 0, false
	}
	return s.QuestionIDs[s.Position], true
}

// Contains reports whether the question is assigned to the session.
func (s *ExamSession) Contains(questionID uint) bool {
	for _, id := range s.QuestionIDs {
		if id == questionID {
			return true
		}
	}
	return false
}

// ClampPosition keeps p within [0, Total()].
func (s *ExamSession) ClampPosition(p int) int {
	if p < 0 {
		return 0
	}
	if p > s.Total() {
		return s.Total()
	}
	return p
}

// AnswerMap indexes answers by question id.
func (s *ExamSession) AnswerMap() map[uint]AnswerSymbol {
	out := make(map[uint]AnswerSymbol, len(s.Answers))
	for _, a := range s.Answers {
		out[a.QuestionID] = a.Answer
	}
	return out
}
