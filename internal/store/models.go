package store

import (
	"time"

	"github.com/google/uuid"
)

// QuestionStatus is the curation state of an unanswered question.
// Transitions to resolved/ignored happen through the curation API only;
// the pipeline itself only creates and increments records.
type QuestionStatus string

const (
	StatusUnanswered QuestionStatus = "unanswered"
	StatusResolved   QuestionStatus = "resolved"
	StatusIgnored    QuestionStatus = "ignored"
	StatusDuplicate  QuestionStatus = "duplicate"
)

type QuestionPriority string

const (
	PriorityLow      QuestionPriority = "low"
	PriorityMedium   QuestionPriority = "medium"
	PriorityHigh     QuestionPriority = "high"
	PriorityCritical QuestionPriority = "critical"
)

type Business struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name                string    `gorm:"not null" json:"name"`
	DefaultLanguage     string    `gorm:"default:en" json:"default_language"`
	ConfidenceThreshold *float64  `json:"confidence_threshold,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// AnswerTemplate is a structured, pre-approved answer for a known section
// of business content.
type AnswerTemplate struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID  uuid.UUID `gorm:"type:uuid;not null;index:idx_templates_scope" json:"business_id"`
	Language    string    `gorm:"not null;default:en;index:idx_templates_scope" json:"language"`
	SectionKey  string    `gorm:"not null" json:"section_key"`
	DisplayName string    `gorm:"not null" json:"display_name"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Active      bool      `gorm:"default:true" json:"active"`
	Approved    bool      `gorm:"default:false" json:"approved"`
	UsageCount  int64     `gorm:"default:0" json:"usage_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ContextSection is free-form business context authored for grounding.
type ContextSection struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID uuid.UUID `gorm:"type:uuid;not null;index:idx_sections_scope" json:"business_id"`
	Language   string    `gorm:"not null;default:en;index:idx_sections_scope" json:"language"`
	SectionKey string    `gorm:"not null" json:"section_key"`
	Title      string    `gorm:"not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Active     bool      `gorm:"default:true" json:"active"`
	Completed  bool      `gorm:"default:false" json:"completed"`
	UsageCount int64     `gorm:"default:0" json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type FAQEntry struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID uuid.UUID `gorm:"type:uuid;not null;index:idx_faqs_scope" json:"business_id"`
	Language   string    `gorm:"not null;default:en;index:idx_faqs_scope" json:"language"`
	Question   string    `gorm:"type:text;not null" json:"question"`
	Answer     string    `gorm:"type:text;not null" json:"answer"`
	Active     bool      `gorm:"default:true" json:"active"`
	Approved   bool      `gorm:"default:false" json:"approved"`
	UsageCount int64     `gorm:"default:0" json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UnansweredQuestion is the deduplicated, frequency-tracked record of a
// question the pipeline could not answer confidently. Keyed uniquely per
// business by the hash of the normalized question text. Score history and
// the session set live in insert-only child tables so concurrent repeats
// never rewrite each other.
type UnansweredQuestion struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID        uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_questions_dedup" json:"business_id"`
	QuestionText      string           `gorm:"type:text;not null" json:"question_text"`
	NormalizedText    string           `gorm:"type:text;not null" json:"normalized_text"`
	ContentHash       string           `gorm:"size:64;not null;uniqueIndex:idx_questions_dedup" json:"content_hash"`
	Frequency         int64            `gorm:"not null;default:1" json:"frequency"`
	ScoreTotal        float64          `gorm:"not null;default:0" json:"score_total"`
	AverageConfidence float64          `gorm:"not null;default:0" json:"average_confidence"`
	Status            QuestionStatus   `gorm:"size:16;not null;default:unanswered" json:"status"`
	Priority          QuestionPriority `gorm:"size:16;not null;default:low" json:"priority"`
	FirstAskedAt      time.Time        `gorm:"not null" json:"first_asked_at"`
	LastAskedAt       time.Time        `gorm:"not null" json:"last_asked_at"`

	Scores   []QuestionScore   `gorm:"foreignKey:QuestionID" json:"scores,omitempty"`
	Sessions []QuestionSession `gorm:"foreignKey:QuestionID" json:"sessions,omitempty"`
}

// QuestionScore is one confidence observation for an unanswered question.
type QuestionScore struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionID uuid.UUID `gorm:"type:uuid;not null;index" json:"question_id"`
	Score      float64   `gorm:"not null" json:"score"`
	CreatedAt  time.Time `json:"created_at"`
}

// QuestionSession links an unanswered question to a session that asked
// it. The unique pair index makes the session set a true set under
// concurrent inserts.
type QuestionSession struct {
	QuestionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_question_sessions_pair" json:"question_id"`
	SessionID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_question_sessions_pair" json:"session_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TestSession holds the running counters for one test conversation.
// MessageSeq is the monotone sequence counter bumped atomically for each
// message; the stat columns are only ever updated with SQL expressions.
type TestSession struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID          uuid.UUID `gorm:"type:uuid;not null;index" json:"business_id"`
	Language            string    `gorm:"not null;default:en" json:"language"`
	Status              string    `gorm:"size:16;not null;default:active" json:"status"`
	MessageSeq          int       `gorm:"not null;default:0" json:"message_seq"`
	MessageCount        int       `gorm:"not null;default:0" json:"message_count"`
	AnsweredCount       int       `gorm:"not null;default:0" json:"answered_count"`
	UnansweredCount     int       `gorm:"not null;default:0" json:"unanswered_count"`
	TotalResponseTimeMs int64     `gorm:"not null;default:0" json:"total_response_time_ms"`
	AverageConfidence   float64   `gorm:"not null;default:0" json:"average_confidence"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TestMessage is one immutable exchange turn. SecurityFlags holds the
// marshaled flag list for audit.
type TestMessage struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_messages_seq" json:"session_id"`
	SequenceNumber  int       `gorm:"not null;uniqueIndex:idx_messages_seq" json:"sequence_number"`
	Role            string    `gorm:"size:16;not null" json:"role"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	ConfidenceScore float64   `json:"confidence_score"`
	ResponseTimeMs  int64     `json:"response_time_ms"`
	Answered        bool      `json:"answered"`
	SecurityFlags   string    `gorm:"type:text" json:"security_flags,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
