package services

import (
	"errors"

	"github.com/SAP-F-2025/exam-service/internal/selection"
)

// Session errors
var (
	ErrSessionNotFound        = errors.New("session not found")
	ErrAlreadyCompleted       = errors.New("candidate already has a graded session")
	ErrSessionAlreadyGraded   = errors.New("session is already graded")
	ErrSessionNotGraded       = errors.New("session has not been graded yet")
	ErrAnswerForeignToSession = errors.New("question is not assigned to this session")
	ErrInvalidAction          = errors.New("invalid session action")

	// ErrNoEligibleContent blocks session creation until content changes
	ErrNoEligibleContent = selection.ErrNoEligibleContent
)

// Question bank errors
var (
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrStorageFailed    = errors.New("failed to store question documents")
)

// Candidate errors
var (
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrPhoneTaken        = errors.New("phone number is registered to another candidate")
)

// Generic errors
var (
	ErrValidationFailed = errors.New("validation failed")
)
