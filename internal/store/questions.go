package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/helpmate-ai/cobalt/internal/logger"
)

// QuestionStore persists unanswered-question records. Deduplication is a
// single atomic upsert on (business_id, content_hash): a losing racer on
// first insert lands in the conflict branch and becomes an increment,
// never an error.
type QuestionStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionStore(db *gorm.DB, log *logger.Logger) *QuestionStore {
	return &QuestionStore{db: db, log: log}
}

// Upsert records one low-confidence occurrence of a question. On first
// occurrence a fresh record is created; on repeats the conflict clause
// bumps frequency, folds the new score into the running average and
// stamps last_asked_at — all evaluated against the stored row inside the
// database, so concurrent repeats cannot lose updates. The score history
// row and the session link are insert-only and race-safe by construction.
func (s *QuestionStore) Upsert(ctx context.Context, businessID, sessionID uuid.UUID, questionText, normalizedText, contentHash string, confidence float64) (*UnansweredQuestion, error) {
	now := time.Now().UTC()
	row := &UnansweredQuestion{
		ID:                uuid.New(),
		BusinessID:        businessID,
		QuestionText:      questionText,
		NormalizedText:    normalizedText,
		ContentHash:       contentHash,
		Frequency:         1,
		ScoreTotal:        confidence,
		AverageConfidence: confidence,
		Status:            StatusUnanswered,
		Priority:          PriorityLow,
		FirstAskedAt:      now,
		LastAskedAt:       now,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "business_id"}, {Name: "content_hash"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"frequency":          gorm.Expr("frequency + 1"),
			"score_total":        gorm.Expr("score_total + excluded.score_total"),
			"average_confidence": gorm.Expr("(score_total + excluded.score_total) / (frequency + 1)"),
			"last_asked_at":      gorm.Expr("excluded.last_asked_at"),
			"priority": gorm.Expr(`CASE
				WHEN frequency + 1 >= 10 THEN 'critical'
				WHEN frequency + 1 >= 5 THEN 'high'
				ELSE 'medium' END`),
		}),
	}).Create(row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert unanswered question: %w", err)
	}

	// Read back the surviving row: on conflict the generated ID above
	// never landed, the original record did.
	var stored UnansweredQuestion
	err = s.db.WithContext(ctx).
		Where("business_id = ? AND content_hash = ?", businessID, contentHash).
		First(&stored).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read back unanswered question: %w", err)
	}

	score := QuestionScore{
		ID:         uuid.New(),
		QuestionID: stored.ID,
		Score:      confidence,
		CreatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&score).Error; err != nil {
		s.log.Warn("failed to append question score", "question_id", stored.ID, "error", err)
	}

	link := QuestionSession{
		QuestionID: stored.ID,
		SessionID:  sessionID,
		CreatedAt:  now,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error
	if err != nil {
		s.log.Warn("failed to link question session", "question_id", stored.ID, "error", err)
	}

	return &stored, nil
}

// FindByHash loads one record with its score history and session set.
func (s *QuestionStore) FindByHash(ctx context.Context, businessID uuid.UUID, contentHash string) (*UnansweredQuestion, error) {
	var row UnansweredQuestion
	err := s.db.WithContext(ctx).
		Preload("Scores").
		Preload("Sessions").
		Where("business_id = ? AND content_hash = ?", businessID, contentHash).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListByBusiness returns the open unanswered questions for a business,
// most frequent first, for the curation surface.
func (s *QuestionStore) ListByBusiness(ctx context.Context, businessID uuid.UUID, limit int) ([]UnansweredQuestion, error) {
	var rows []UnansweredQuestion
	q := s.db.WithContext(ctx).
		Preload("Sessions").
		Where("business_id = ? AND status = ?", businessID, StatusUnanswered).
		Order("frequency DESC, last_asked_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list unanswered questions: %w", err)
	}
	return rows, nil
}
