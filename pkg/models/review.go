package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// VocabularyID is an opaque key into the vocabulary catalog.
type VocabularyID string

// Status is the coarse learning stage of a review record.
type Status string

const (
	StatusNew      Status = "new"
	StatusLearning Status = "learning"
	StatusReview   Status = "review"
	StatusMastered Status = "mastered"
)

// Compile-time interface checks.
var (
	_ json.Marshaler   = Status("")
	_ json.Unmarshaler = (*Status)(nil)
	_ driver.Valuer    = Status("")
)

// IsValid reports whether s is one of the four known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusLearning, StatusReview, StatusMastered:
		return true
	}
	return false
}

// MarshalJSON implements json.Marshaler.
func (s Status) MarshalJSON() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid status %q", string(s))
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("invalid status: %s", data)
	}
	if !Status(str).IsValid() {
		return fmt.Errorf("invalid status %q", str)
	}
	*s = Status(str)
	return nil
}

// Value implements driver.Valuer so statuses are stored as plain strings.
func (s Status) Value() (driver.Value, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid status %q", string(s))
	}
	return string(s), nil
}

// Scan implements sql.Scanner.
func (s *Status) Scan(src interface{}) error {
	var str string
	switch v := src.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Status", src)
	}
	if !Status(str).IsValid() {
		return fmt.Errorf("invalid status %q", str)
	}
	*s = Status(str)
	return nil
}

// ReviewRecord is the scheduling state of one vocabulary item for one learner
type ReviewRecord struct {
	UserID         int64        `json:"user_id" db:"user_id"`
	VocabularyID   VocabularyID `json:"vocabulary_id" db:"vocabulary_id"`
	Ease           float64      `json:"ease" db:"ease"`               // SM-2 easiness factor, >= 1.3
	Interval       int          `json:"interval" db:"interval_days"`  // Current interval in days
	Repetitions    int          `json:"repetitions" db:"repetitions"` // Successes since the last lapse
	Status         Status       `json:"status" db:"status"`
	NextReviewDate time.Time    `json:"next_review_date" db:"next_review_date"`
	LastReviewDate *time.Time   `json:"last_review_date" db:"last_review_date"`
	TotalReviews   int          `json:"total_reviews" db:"total_reviews"`
	CorrectCount   int          `json:"correct_count" db:"correct_count"`
	Version        int64        `json:"version" db:"version"` // Optimistic lock, owned by the store
}

// ReviewLog records a single grading event.
type ReviewLog struct {
	ID           int64        `json:"id" db:"id"`
	UserID       int64        `json:"user_id" db:"user_id"`
	VocabularyID VocabularyID `json:"vocabulary_id" db:"vocabulary_id"`
	Quality      Quality      `json:"quality" db:"quality"`
	ReviewedAt   time.Time    `json:"reviewed_at" db:"reviewed_at"`
	Interval     int          `json:"interval" db:"interval_days"`
	Ease         float64      `json:"ease" db:"ease"`
}
