package spaced_repetition

import (
	"slices"
	"time"

	"github.com/example/vocabsrs/pkg/models"
)

// IsDue reports whether rec should be shown at now. A record without a next
// review date is never due.
func IsDue(rec models.ReviewRecord, now time.Time) bool {
	if rec.NextReviewDate.IsZero() {
		return false
	}
	return !now.Before(rec.NextReviewDate)
}

// DueCount returns how many records are due at now.
func DueCount(records []models.ReviewRecord, now time.Time) int {
	count := 0
	for _, r := range records {
		if IsDue(r, now) {
			count++
		}
	}
	return count
}

// OrderByDueDate returns a copy of records sorted by next review date, earliest
// first. Records with equal dates keep their relative order.
func OrderByDueDate(records []models.ReviewRecord) []models.ReviewRecord {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b models.ReviewRecord) int {
		return a.NextReviewDate.Compare(b.NextReviewDate)
	})
	return out
}

// NextDue returns the due records in due-date order. A limit <= 0 means no limit.
func NextDue(records []models.ReviewRecord, now time.Time, limit int) []models.ReviewRecord {
	due := make([]models.ReviewRecord, 0, len(records))
	for _, r := range records {
		if IsDue(r, now) {
			due = append(due, r)
		}
	}
	due = OrderByDueDate(due)
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due
}

// Summary aggregates a learner's records
type Summary struct {
	Total       int
	Due         int
	ByStatus    map[models.Status]int
	Reviews     int
	Correct     int
	Accuracy    float64 // Correct / Reviews, 0 when nothing was reviewed
	AverageEase float64
}

// Summarize computes a Summary of records at now.
func Summarize(records []models.ReviewRecord, now time.Time) Summary {
	s := Summary{
		Total:    len(records),
		ByStatus: make(map[models.Status]int, 4),
	}
	var easeSum float64
	for _, r := range records {
		s.ByStatus[r.Status]++
		s.Reviews += r.TotalReviews
		s.Correct += r.CorrectCount
		easeSum += r.Ease
		if IsDue(r, now) {
			s.Due++
		}
	}
	if s.Reviews > 0 {
		s.Accuracy = float64(s.Correct) / float64(s.Reviews)
	}
	if s.Total > 0 {
		s.AverageEase = easeSum / float64(s.Total)
	}
	return s
}
