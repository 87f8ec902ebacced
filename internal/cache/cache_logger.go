package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// ActiveSubjectsKey holds the ordered list of active subjects
const ActiveSubjectsKey = "active"

// QuestionKey is the key of a question row
func QuestionKey(id uint) string {
	return fmt.Sprintf("id:%d", id)
}

// RenderKey is the key of the rendered markup of one language variant
func RenderKey(questionID uint, lang models.Language) string {
	return fmt.Sprintf("%d:%s", questionID, lang)
}

// ResultKey is the key of a graded session result
func ResultKey(token string) string {
	return "result:" + token
}

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}
