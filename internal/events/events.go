package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "exam-service"
	EventVersion = "1.0"
)

// Event types
const (
	TypeExamGraded           = "exam.graded"
	TypeCertificateRequested = "certificate.requested"
	TypeQuestionsImported    = "questions.imported"
)

// Event is the envelope of every published message
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh id
func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher publishes domain events to a topic
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *Event) error
	Close() error
}

// ===== EVENT PAYLOADS =====

type ExamGradedEvent struct {
	SessionID    uint    `json:"session_id"`
	CandidateID  uint    `json:"candidate_id"`
	TelegramID   int64   `json:"telegram_id"`
	Score        int     `json:"score"`
	Total        int     `json:"total"`
	Percentage   float64 `json:"percentage"`
	Tier         string  `json:"tier"`
	GradingToken string  `json:"grading_token"`
}

type QuestionsImportedEvent struct {
	SubjectID uint     `json:"subject_id"`
	Count     int      `json:"count"`
	Languages []string `json:"languages"`
}
