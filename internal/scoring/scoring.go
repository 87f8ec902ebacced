// Package scoring grades a finished exam session and assigns its tier.
package scoring

import (
	"math"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// DefaultPassThreshold is the percentage a session must exceed to pass.
const DefaultPassThreshold = 80.0

// Policy maps a percentage to a tier.
type Policy struct {
	PassThreshold float64
}

func DefaultPolicy() Policy {
	return Policy{PassThreshold: DefaultPassThreshold}
}

// Tier returns pass only when percentage is strictly above the threshold.
func (p Policy) Tier(percentage float64) models.Tier {
	if percentage > p.PassThreshold {
		return models.TierPass
	}
	return models.TierFail
}

// TierOf decides on the exact ratio so display rounding never flips a tier.
func (p Policy) TierOf(correct, total int) models.Tier {
	if total > 0 && float64(correct)*100 > p.PassThreshold*float64(total) {
		return models.TierPass
	}
	return models.TierFail
}

// Result is the outcome of grading one session.
type Result struct {
	Correct    int         `json:"score"`
	Total      int         `json:"total"`
	Percentage float64     `json:"percentage"`
	Tier       models.Tier `json:"tier"`
}

// Grade counts assigned questions whose recorded answer matches the key.
// Unanswered questions count as wrong. An empty assignment grades to 0%.
func (p Policy) Grade(assigned []uint, answers, key map[uint]models.AnswerSymbol) Result {
	correct := 0
	for _, id := range assigned {
		given, ok := answers[id]
		if !ok {
			continue
		}
		if want, ok := key[id]; ok && given == want {
			correct++
		}
	}

	res := Result{Correct: correct, Total: len(assigned)}
	if res.Total > 0 {
		res.Percentage = Percentage(correct, res.Total)
	}
	res.Tier = p.TierOf(correct, res.Total)
	return res
}

// Percentage returns correct/total*100 rounded to two decimals, 0 when total is 0.
func Percentage(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*10000) / 100
}
