// Package selection draws the question set of a new exam session.
package selection

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// ErrNoEligibleContent means no active question matches the cohort.
var ErrNoEligibleContent = errors.New("no eligible questions for this cohort")

// QuestionSource exposes the question bank to the selector.
type QuestionSource interface {
	// ActiveSubjects returns active subjects in a stable order.
	ActiveSubjects(ctx context.Context) ([]*models.Subject, error)
	// ActiveQuestionIDs returns active questions of the subject that have a
	// document in lang.
	ActiveQuestionIDs(ctx context.Context, subjectID uint, lang models.Language) ([]uint, error)
}

// Selector samples questions per subject.
type Selector struct {
	source QuestionSource

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector returns a selector. A nil rng uses the runtime-seeded global source.
func NewSelector(source QuestionSource, rng *rand.Rand) *Selector {
	return &Selector{source: source, rng: rng}
}

// Select draws up to perSubjectLimit questions from every active subject
// whose year range contains the cohort year and concatenates them in subject
// order.
func (s *Selector) Select(ctx context.Context, cohort models.Cohort, lang models.Language, perSubjectLimit int) ([]uint, error) {
	if perSubjectLimit <= 0 {
		return nil, fmt.Errorf("per subject limit must be positive, got %d", perSubjectLimit)
	}

	subjects, err := s.source.ActiveSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load subjects: %w", err)
	}

	var (
		selected []uint
		seen     = make(map[uint]struct{})
	)
	for _, subject := range subjects {
		if !subject.IsActive || !subject.Accepts(cohort.Year) {
			continue
		}

		ids, err := s.source.ActiveQuestionIDs(ctx, subject.ID, lang)
		if err != nil {
			return nil, fmt.Errorf("failed to load questions for subject %d: %w", subject.ID, err)
		}

		for _, id := range s.sample(unique(ids, seen), perSubjectLimit) {
			seen[id] = struct{}{}
			selected = append(selected, id)
		}
	}

	if len(selected) == 0 {
		return nil, ErrNoEligibleContent
	}
	return selected, nil
}

func (s *Selector) sample(ids []uint, k int) []uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Sample(s.rng, ids, k)
}

// Sample returns k distinct elements chosen uniformly at random, or all of
// them in random order when len(ids) <= k. The input is not modified.
func Sample(rng *rand.Rand, ids []uint, k int) []uint {
	pool := make([]uint, len(ids))
	copy(pool, ids)
	if k > len(pool) {
		k = len(pool)
	}

	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}

	// partial Fisher-Yates: every k-subset is equally likely
	for i := 0; i < k; i++ {
		j := i + intN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// unique drops ids already selected and duplicates within ids.
func unique(ids []uint, seen map[uint]struct{}) []uint {
	out := make([]uint, 0, len(ids))
	local := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		if _, ok := local[id]; ok {
			continue
		}
		local[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
