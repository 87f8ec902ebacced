package rendering

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/cache"
)

// Loader fetches the package to render.
type Loader func(ctx context.Context) ([]byte, error)

// Cached renders through a redis cache and never fails: any error yields
// Placeholder.
type Cached struct {
	renderer Renderer
	cache    *cache.CacheHelper
	ttl      time.Duration
	logger   *slog.Logger
}

func NewCached(renderer Renderer, helper *cache.CacheHelper, ttl time.Duration, logger *slog.Logger) *Cached {
	if ttl <= 0 {
		ttl = cache.RenderCacheConfig.TTL
	}
	return &Cached{renderer: renderer, cache: helper, ttl: ttl, logger: logger}
}

// Render returns the markup stored under key, rendering it on a miss. The
// boolean is false when Placeholder was returned.
func (c *Cached) Render(ctx context.Context, key string, load Loader) (string, bool) {
	if markup, err := c.cache.GetString(ctx, key); err == nil {
		return markup, true
	} else if !errors.Is(err, cache.ErrCacheNotFound) && !errors.Is(err, cache.ErrCacheNotAvailable) {
		c.logger.WarnContext(ctx, "Render cache read failed", "key", key, "error", err)
	}

	doc, err := load(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to load question document", "key", key, "error", err)
		return Placeholder, false
	}

	markup, err := c.renderer.Render(ctx, doc)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to render question document", "key", key, "error", err)
		return Placeholder, false
	}

	if err := c.cache.SetString(ctx, key, markup, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "Render cache write failed", "key", key, "error", err)
	}
	return markup, true
}
