package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/helpmate-ai/cobalt/internal/logger"
)

// ContentStore reads the three content source tables and maintains their
// usage counters. Reads go through an optional Redis cache; any cache
// failure falls back to the database so Redis never becomes a hard
// dependency.
type ContentStore struct {
	db    *gorm.DB
	cache *redis.Client
	ttl   time.Duration
	log   *logger.Logger
}

func NewContentStore(db *gorm.DB, cache *redis.Client, ttl time.Duration, log *logger.Logger) *ContentStore {
	return &ContentStore{
		db:    db,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

func contentCacheKey(kind string, businessID uuid.UUID, language string) string {
	return fmt.Sprintf("content:%s:%s:%s", businessID, language, kind)
}

// cachedList reads a JSON list from Redis, falling back to load on miss
// or error. The loaded value is written back best-effort.
func cachedList[T any](ctx context.Context, s *ContentStore, key string, load func() ([]T, error)) ([]T, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			var out []T
			if jsonErr := json.Unmarshal(raw, &out); jsonErr == nil {
				return out, nil
			}
		} else if err != redis.Nil {
			s.log.Warn("content cache read failed", "key", key, "error", err)
		}
	}

	out, err := load()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, jsonErr := json.Marshal(out); jsonErr == nil {
			if err := s.cache.Set(ctx, key, raw, s.ttl).Err(); err != nil {
				s.log.Warn("content cache write failed", "key", key, "error", err)
			}
		}
	}
	return out, nil
}

// Templates returns the active, approved answer templates for a business
// and language.
func (s *ContentStore) Templates(ctx context.Context, businessID uuid.UUID, language string) ([]AnswerTemplate, error) {
	return cachedList(ctx, s, contentCacheKey("template", businessID, language), func() ([]AnswerTemplate, error) {
		var rows []AnswerTemplate
		err := s.db.WithContext(ctx).
			Where("business_id = ? AND language = ? AND active = ? AND approved = ?", businessID, language, true, true).
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load templates: %w", err)
		}
		return rows, nil
	})
}

// Sections returns the active, completed context sections for a business
// and language.
func (s *ContentStore) Sections(ctx context.Context, businessID uuid.UUID, language string) ([]ContextSection, error) {
	return cachedList(ctx, s, contentCacheKey("section", businessID, language), func() ([]ContextSection, error) {
		var rows []ContextSection
		err := s.db.WithContext(ctx).
			Where("business_id = ? AND language = ? AND active = ? AND completed = ?", businessID, language, true, true).
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load sections: %w", err)
		}
		return rows, nil
	})
}

// FAQs returns the active, approved FAQ entries for a business and
// language.
func (s *ContentStore) FAQs(ctx context.Context, businessID uuid.UUID, language string) ([]FAQEntry, error) {
	return cachedList(ctx, s, contentCacheKey("faq", businessID, language), func() ([]FAQEntry, error) {
		var rows []FAQEntry
		err := s.db.WithContext(ctx).
			Where("business_id = ? AND language = ? AND active = ? AND approved = ?", businessID, language, true, true).
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load faqs: %w", err)
		}
		return rows, nil
	})
}

// RecordTemplateHits bumps the usage counter of the given templates with
// an atomic column expression. Two concurrent responses never lose an
// increment.
func (s *ContentStore) RecordTemplateHits(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&AnswerTemplate{}).
		Where("id IN ?", ids).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1)).Error
}

// RecordSectionHits bumps the usage counter of the given sections.
func (s *ContentStore) RecordSectionHits(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&ContextSection{}).
		Where("id IN ?", ids).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1)).Error
}

// RecordFAQHits bumps the usage counter of the given FAQ entries.
func (s *ContentStore) RecordFAQHits(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&FAQEntry{}).
		Where("id IN ?", ids).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1)).Error
}
