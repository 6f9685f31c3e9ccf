package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/recipesimplifier/api/internal/domain/recipe"
	"github.com/recipesimplifier/api/internal/ports/outbound"
)

const cacheKeyPrefix = "parse:"

// CachingExtractor serves repeated extractions of the same page, locale and
// instructions from a cache.
type CachingExtractor struct {
	next   outbound.RecipeExtractor
	cache  outbound.CacheRepository
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachingExtractor(next outbound.RecipeExtractor, cache outbound.CacheRepository, ttl time.Duration, logger *zap.Logger) *CachingExtractor {
	return &CachingExtractor{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.Named("parse-cache"),
	}
}

func (c *CachingExtractor) Extract(ctx context.Context, req outbound.ExtractionRequest) (*recipe.ParsedRecipe, error) {
	if req.Page == nil {
		return c.next.Extract(ctx, req)
	}
	key := CacheKey(req)

	data, err := c.cache.Get(ctx, key)
	if err == nil {
		var cached recipe.ParsedRecipe
		if jsonErr := json.Unmarshal(data, &cached); jsonErr == nil {
			c.logger.Debug("cache hit", zap.String("url", req.Page.URL))
			return &cached, nil
		}
		_ = c.cache.Delete(ctx, key)
	} else if !errors.Is(err, outbound.ErrCacheMiss) {
		c.logger.Warn("cache read failed", zap.Error(err))
	}

	parsed, err := c.next.Extract(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(parsed); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("cache write failed", zap.Error(err))
		}
	}
	return parsed, nil
}

// CacheKey identifies an extraction by page URL, locale and instructions.
func CacheKey(req outbound.ExtractionRequest) string {
	h := sha256.New()
	h.Write([]byte(req.Page.URL))
	h.Write([]byte{0})
	h.Write([]byte(req.Locale))
	h.Write([]byte{0})
	h.Write([]byte(req.Customizations.Joined()))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
