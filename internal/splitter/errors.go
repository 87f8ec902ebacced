package splitter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/exam-service/internal/docx"
	"github.com/SAP-F-2025/exam-service/internal/models"
)

var (
	ErrPackageCorrupt             = docx.ErrPackageCorrupt
	ErrXMLMalformed               = docx.ErrXMLMalformed
	ErrAnswerKeyInvalid           = errors.New("answer key is invalid")
	ErrSegmentCountMismatch       = errors.New("question counts differ between languages")
	ErrSegmentAnswerCountMismatch = errors.New("question count does not match answer count")
	ErrDelimiterRequired          = errors.New("delimiter is required")
)

// LanguageError ties a document failure to the language it came from.
type LanguageError struct {
	Language models.Language
	Err      error
}

func (e *LanguageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Language.Label(), e.Err)
}

func (e *LanguageError) Unwrap() error { return e.Err }

// AnswerKeyError points at the first disallowed character of the answer key.
type AnswerKeyError struct {
	Position int
	Char     rune
}

func (e *AnswerKeyError) Error() string {
	return fmt.Sprintf("answer key is invalid: %q at position %d, only A, B, C and D are allowed", e.Char, e.Position+1)
}

func (e *AnswerKeyError) Unwrap() error { return ErrAnswerKeyInvalid }

// CountMismatchError carries the per-language segment counts.
type CountMismatchError struct {
	Languages []models.Language
	Counts    []int
	// AnswerCount is set for segment/answer mismatches only.
	AnswerCount int
	answerCheck bool
}

func (e *CountMismatchError) Error() string {
	if e.answerCheck {
		return fmt.Sprintf("found %d questions but %d answers", e.Counts[0], e.AnswerCount)
	}
	labels := make([]string, len(e.Languages))
	for i, l := range e.Languages {
		labels[i] = l.Label()
	}
	return fmt.Sprintf("question counts differ between languages (%s): %s",
		strings.Join(labels, ", "), formatCounts(e.Counts))
}

func (e *CountMismatchError) Unwrap() error {
	if e.answerCheck {
		return ErrSegmentAnswerCountMismatch
	}
	return ErrSegmentCountMismatch
}

// formatCounts renders counts as "[5,7]".
func formatCounts(counts []int) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprint(c)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
