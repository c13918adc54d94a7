package models

import "time"

// Word is a vocabulary item from the catalog
type Word struct {
	ID            VocabularyID `json:"id" db:"id"`
	Term          string       `json:"term" db:"term"`
	Translation   string       `json:"translation" db:"translation"`
	Context       string       `json:"context" db:"context"`
	Topic         string       `json:"topic" db:"topic"`
	Difficulty    int          `json:"difficulty" db:"difficulty"`       // 1-5 scale of difficulty
	Pronunciation string       `json:"pronunciation" db:"pronunciation"` // Optional transcription
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}
