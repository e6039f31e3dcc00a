package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpmate-ai/cobalt/internal/core/text"
	"github.com/helpmate-ai/cobalt/internal/logger"
	"github.com/helpmate-ai/cobalt/internal/store"
	"github.com/helpmate-ai/cobalt/internal/store/storetest"
)

func upsertQuestion(t *testing.T, s *store.QuestionStore, businessID, sessionID uuid.UUID, question string, confidence float64) *store.UnansweredQuestion {
	t.Helper()
	stored, err := s.Upsert(context.Background(), businessID, sessionID,
		question, text.Normalize(question), text.ContentHash(question), confidence)
	require.NoError(t, err)
	return stored
}

func TestUpsertFirstOccurrence(t *testing.T) {
	db := storetest.Open(t)
	s := store.NewQuestionStore(db, logger.NewNop())

	businessID := uuid.New()
	stored := upsertQuestion(t, s, businessID, uuid.New(), "Do you offer gift cards?", 0.42)

	assert.Equal(t, int64(1), stored.Frequency)
	assert.InDelta(t, 0.42, stored.AverageConfidence, 1e-9)
	assert.Equal(t, store.StatusUnanswered, stored.Status)
	assert.Equal(t, store.PriorityLow, stored.Priority)
	assert.True(t, stored.FirstAskedAt.Equal(stored.LastAskedAt))
}

func TestUpsertRepeatFoldsScore(t *testing.T) {
	db := storetest.Open(t)
	s := store.NewQuestionStore(db, logger.NewNop())

	businessID := uuid.New()
	first := upsertQuestion(t, s, businessID, uuid.New(), "Do you offer gift cards?", 0.6)
	second := upsertQuestion(t, s, businessID, uuid.New(), "Do you offer gift cards?", 0.2)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(2), second.Frequency)
	assert.InDelta(t, 0.8, second.ScoreTotal, 1e-9)
	assert.InDelta(t, 0.4, second.AverageConfidence, 1e-9)
	assert.Equal(t, store.PriorityMedium, second.Priority)
	assert.False(t, second.LastAskedAt.Before(first.LastAskedAt))
}

func TestUpsertPriorityEscalation(t *testing.T) {
	db := storetest.Open(t)
	s := store.NewQuestionStore(db, logger.NewNop())

	businessID := uuid.New()
	question := "Can I pay with crypto?"

	var stored *store.UnansweredQuestion
	for i := 0; i < 4; i++ {
		stored = upsertQuestion(t, s, businessID, uuid.New(), question, 0.3)
	}
	assert.Equal(t, int64(4), stored.Frequency)
	assert.Equal(t, store.PriorityMedium, stored.Priority)

	stored = upsertQuestion(t, s, businessID, uuid.New(), question, 0.3)
	assert.Equal(t, int64(5), stored.Frequency)
	assert.Equal(t, store.PriorityHigh, stored.Priority)

	for i := 0; i < 5; i++ {
		stored = upsertQuestion(t, s, businessID, uuid.New(), question, 0.3)
	}
	assert.Equal(t, int64(10), stored.Frequency)
	assert.Equal(t, store.PriorityCritical, stored.Priority)
}

func TestFindByHashLoadsHistory(t *testing.T) {
	db := storetest.Open(t)
	s := store.NewQuestionStore(db, logger.NewNop())

	businessID := uuid.New()
	sessionID := uuid.New()
	upsertQuestion(t, s, businessID, sessionID, "Do you ship internationally?", 0.5)
	upsertQuestion(t, s, businessID, sessionID, "Do you ship internationally?", 0.1)

	stored, err := s.FindByHash(context.Background(), businessID, text.ContentHash("Do you ship internationally?"))
	require.NoError(t, err)
	assert.Len(t, stored.Scores, 2)
	// Same session asked twice; the link is a set.
	assert.Len(t, stored.Sessions, 1)
}

func TestListByBusinessOrdersByFrequency(t *testing.T) {
	db := storetest.Open(t)
	s := store.NewQuestionStore(db, logger.NewNop())

	businessID := uuid.New()
	upsertQuestion(t, s, businessID, uuid.New(), "rare question", 0.3)
	for i := 0; i < 3; i++ {
		upsertQuestion(t, s, businessID, uuid.New(), "common question", 0.3)
	}

	rows, err := s.ListByBusiness(context.Background(), businessID, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "common question", rows[0].QuestionText)
	assert.Equal(t, int64(3), rows[0].Frequency)
	assert.Equal(t, "rare question", rows[1].QuestionText)
}

func TestListByBusinessExcludesResolved(t *testing.T) {
	db := storetest.Open(t)
	s := store.NewQuestionStore(db, logger.NewNop())

	businessID := uuid.New()
	stored := upsertQuestion(t, s, businessID, uuid.New(), "old question", 0.3)
	upsertQuestion(t, s, businessID, uuid.New(), "open question", 0.3)

	require.NoError(t, db.Model(&store.UnansweredQuestion{}).
		Where("id = ?", stored.ID).
		Update("status", store.StatusResolved).Error)

	rows, err := s.ListByBusiness(context.Background(), businessID, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "open question", rows[0].QuestionText)
}

func TestListByBusinessHonorsLimit(t *testing.T) {
	db := storetest.Open(t)
	s := store.NewQuestionStore(db, logger.NewNop())

	businessID := uuid.New()
	for _, q := range []string{"q one", "q two", "q three"} {
		upsertQuestion(t, s, businessID, uuid.New(), q, 0.3)
	}

	rows, err := s.ListByBusiness(context.Background(), businessID, 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
