// Package tracker records questions the pipeline could not answer
// confidently, deduplicated per business by a hash of the normalized
// question text.
package tracker

import (
	"context"

	"github.com/google/uuid"

	"github.com/helpmate-ai/cobalt/internal/core/text"
	"github.com/helpmate-ai/cobalt/internal/logger"
	"github.com/helpmate-ai/cobalt/internal/store"
)

type Tracker struct {
	questions *store.QuestionStore
	log       *logger.Logger
}

func NewTracker(questions *store.QuestionStore, log *logger.Logger) *Tracker {
	return &Tracker{questions: questions, log: log}
}

// Record is one low-confidence occurrence to track.
type Record struct {
	Question        string
	BusinessID      uuid.UUID
	SessionID       uuid.UUID
	ConfidenceScore float64
	ContextSources  int
}

// Track normalizes and hashes the question, then upserts the
// per-business record: first occurrence inserts, repeats fold in the new
// score, bump frequency and union the session. Failures are logged and
// swallowed — losing a tracking update must never fail the user-facing
// response.
func (t *Tracker) Track(ctx context.Context, rec Record) {
	normalized := text.Normalize(rec.Question)
	if normalized == "" {
		return
	}
	hash := text.ContentHash(rec.Question)

	stored, err := t.questions.Upsert(ctx, rec.BusinessID, rec.SessionID,
		rec.Question, normalized, hash, rec.ConfidenceScore)
	if err != nil {
		t.log.Error("failed to track unanswered question",
			"business_id", rec.BusinessID,
			"content_hash", hash,
			"error", err)
		return
	}

	t.log.Info("tracked unanswered question",
		"business_id", rec.BusinessID,
		"content_hash", hash,
		"frequency", stored.Frequency,
		"average_confidence", stored.AverageConfidence,
		"context_sources", rec.ContextSources)
}
