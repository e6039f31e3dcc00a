package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/helpmate-ai/cobalt/internal/logger"
	"github.com/helpmate-ai/cobalt/internal/store"
	"github.com/helpmate-ai/cobalt/internal/store/storetest"
)

func newCachedStore(t *testing.T) (*store.ContentStore, *gorm.DB, *miniredis.Miniredis, uuid.UUID) {
	t.Helper()

	db := storetest.Open(t)
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	businessID := uuid.New()
	require.NoError(t, db.Create(&store.AnswerTemplate{
		ID:          uuid.New(),
		BusinessID:  businessID,
		Language:    "en",
		SectionKey:  "pricing",
		DisplayName: "Pricing",
		Content:     "Sessions cost fifty dollars.",
		Active:      true,
		Approved:    true,
	}).Error)

	return store.NewContentStore(db, cache, time.Minute, logger.NewNop()), db, mr, businessID
}

func TestTemplatesFiltersInactiveAndUnapproved(t *testing.T) {
	db := storetest.Open(t)
	s := store.NewContentStore(db, nil, time.Minute, logger.NewNop())

	businessID := uuid.New()
	rows := []store.AnswerTemplate{
		{ID: uuid.New(), BusinessID: businessID, Language: "en", SectionKey: "a", DisplayName: "Live", Content: "x", Active: true, Approved: true},
		{ID: uuid.New(), BusinessID: businessID, Language: "en", SectionKey: "b", DisplayName: "Draft", Content: "x", Active: true, Approved: false},
		{ID: uuid.New(), BusinessID: businessID, Language: "en", SectionKey: "c", DisplayName: "Retired", Content: "x", Active: false, Approved: true},
		{ID: uuid.New(), BusinessID: businessID, Language: "de", SectionKey: "d", DisplayName: "German", Content: "x", Active: true, Approved: true},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	got, err := s.Templates(context.Background(), businessID, "en")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Live", got[0].DisplayName)
}

func TestTemplatesServedFromCacheOnSecondRead(t *testing.T) {
	s, db, mr, businessID := newCachedStore(t)

	first, err := s.Templates(context.Background(), businessID, "en")
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Change the row under the cache; the cached list must still win
	// within the TTL.
	require.NoError(t, db.Model(&store.AnswerTemplate{}).
		Where("id = ?", first[0].ID).
		Update("display_name", "Changed").Error)

	second, err := s.Templates(context.Background(), businessID, "en")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "Pricing", second[0].DisplayName)

	// After expiry the database copy is read again.
	mr.FastForward(2 * time.Minute)
	third, err := s.Templates(context.Background(), businessID, "en")
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Equal(t, "Changed", third[0].DisplayName)
}

func TestTemplatesFallBackWhenCacheIsDown(t *testing.T) {
	s, _, mr, businessID := newCachedStore(t)

	mr.Close()

	got, err := s.Templates(context.Background(), businessID, "en")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSectionsRequireCompletion(t *testing.T) {
	db := storetest.Open(t)
	s := store.NewContentStore(db, nil, time.Minute, logger.NewNop())

	businessID := uuid.New()
	require.NoError(t, db.Create(&store.ContextSection{
		ID: uuid.New(), BusinessID: businessID, Language: "en",
		SectionKey: "hours", Title: "Done", Content: "x", Active: true, Completed: true,
	}).Error)
	require.NoError(t, db.Create(&store.ContextSection{
		ID: uuid.New(), BusinessID: businessID, Language: "en",
		SectionKey: "wip", Title: "Draft", Content: "x", Active: true, Completed: false,
	}).Error)

	got, err := s.Sections(context.Background(), businessID, "en")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Done", got[0].Title)
}

func TestRecordHitsAreCumulative(t *testing.T) {
	db := storetest.Open(t)
	s := store.NewContentStore(db, nil, time.Minute, logger.NewNop())

	businessID := uuid.New()
	faq := &store.FAQEntry{
		ID: uuid.New(), BusinessID: businessID, Language: "en",
		Question: "q", Answer: "a", Active: true, Approved: true,
	}
	require.NoError(t, db.Create(faq).Error)

	require.NoError(t, s.RecordFAQHits(context.Background(), []uuid.UUID{faq.ID}))
	require.NoError(t, s.RecordFAQHits(context.Background(), []uuid.UUID{faq.ID}))
	require.NoError(t, s.RecordFAQHits(context.Background(), nil))

	var got store.FAQEntry
	require.NoError(t, db.First(&got, "id = ?", faq.ID).Error)
	assert.Equal(t, int64(2), got.UsageCount)
}
