package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/helpmate-ai/cobalt/internal/core/model"
)

// SessionStore persists test sessions and their message log. All counter
// updates are single SQL statements with column expressions; the store
// never does read-modify-write on counters in application memory.
type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) CreateSession(ctx context.Context, businessID uuid.UUID, language string) (*TestSession, error) {
	sess := &TestSession{
		ID:         uuid.New(),
		BusinessID: businessID,
		Language:   language,
		Status:     "active",
	}
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) GetSession(ctx context.Context, id uuid.UUID) (*TestSession, error) {
	var sess TestSession
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &sess, nil
}

func (s *SessionStore) GetBusiness(ctx context.Context, id uuid.UUID) (*Business, error) {
	var biz Business
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&biz).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrBusinessNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load business: %w", err)
	}
	return &biz, nil
}

// NextSequence atomically bumps the session's message counter and
// returns the new value. Concurrent messages in one session each get a
// distinct, monotone sequence number because the increment happens in
// the database.
func (s *SessionStore) NextSequence(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var sess TestSession
	tx := s.db.WithContext(ctx).Model(&sess).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "message_seq"}}}).
		Where("id = ?", sessionID).
		UpdateColumn("message_seq", gorm.Expr("message_seq + 1"))
	if tx.Error != nil {
		return 0, fmt.Errorf("failed to advance sequence: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return 0, model.ErrSessionNotFound
	}
	return sess.MessageSeq, nil
}

func (s *SessionStore) SaveMessage(ctx context.Context, msg *TestMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// RecentMessages returns the last n messages of a session, oldest first.
func (s *SessionStore) RecentMessages(ctx context.Context, sessionID uuid.UUID, n int) ([]TestMessage, error) {
	var rows []TestMessage
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sequence_number DESC").
		Limit(n).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent messages: %w", err)
	}
	// Reverse to chronological order.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// BumpStats folds one exchange into the session counters in a single
// UPDATE. The running average uses the pre-update message_count, so two
// racing messages both land correctly.
func (s *SessionStore) BumpStats(ctx context.Context, sessionID uuid.UUID, answered bool, confidence float64, elapsed time.Duration) error {
	answeredInc := 0
	unansweredInc := 1
	if answered {
		answeredInc = 1
		unansweredInc = 0
	}

	return s.db.WithContext(ctx).Model(&TestSession{}).
		Where("id = ?", sessionID).
		UpdateColumns(map[string]interface{}{
			"message_count":          gorm.Expr("message_count + 1"),
			"answered_count":         gorm.Expr("answered_count + ?", answeredInc),
			"unanswered_count":       gorm.Expr("unanswered_count + ?", unansweredInc),
			"total_response_time_ms": gorm.Expr("total_response_time_ms + ?", elapsed.Milliseconds()),
			"average_confidence":     gorm.Expr("(average_confidence * message_count + ?) / (message_count + 1)", confidence),
		}).Error
}
