package spaced_repetition

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/vocabsrs/pkg/models"
)

// ErrLogMismatch is returned by Replay when a log belongs to another record.
var ErrLogMismatch = errors.New("review log does not match record")

const (
	masteredMinRepetitions = 5
	masteredMinEase        = 2.5
	masteredMinInterval    = 30
)

// Day is the unit intervals are measured in. Intervals are added as whole
// 24h days, not calendar days.
const Day = 24 * time.Hour

// CreateNewReview returns the record for an item introduced to a learner at now.
// The record is due immediately.
func CreateNewReview(userID int64, vocabularyID models.VocabularyID, now time.Time) models.ReviewRecord {
	return models.ReviewRecord{
		UserID:         userID,
		VocabularyID:   vocabularyID,
		Ease:           InitialEase,
		Interval:       InitialInterval,
		Repetitions:    0,
		Status:         models.StatusNew,
		NextReviewDate: now,
	}
}

// Grade records a review of rec at now and returns the updated record.
// rec itself is left untouched; on error nothing is applied.
func Grade(rec models.ReviewRecord, quality models.Quality, now time.Time) (models.ReviewRecord, error) {
	t, err := ComputeTransition(rec.Interval, rec.Repetitions, rec.Ease, quality)
	if err != nil {
		return models.ReviewRecord{}, err
	}

	next := rec
	next.Interval = t.Interval
	next.Repetitions = t.Repetitions
	next.Ease = t.Ease
	reviewed := now
	next.LastReviewDate = &reviewed
	next.NextReviewDate = now.Add(time.Duration(t.Interval) * Day)
	next.TotalReviews = rec.TotalReviews + 1
	if !quality.IsLapse() {
		next.CorrectCount = rec.CorrectCount + 1
	}
	next.Status = Classify(t.Repetitions, t.Ease, t.Interval)
	return next, nil
}

// Classify derives the status of a graded record. It never returns StatusNew.
func Classify(repetitions int, ease float64, interval int) models.Status {
	switch {
	case repetitions == 0:
		return models.StatusLearning
	case repetitions < masteredMinRepetitions:
		return models.StatusReview
	case ease > masteredMinEase && interval > masteredMinInterval:
		return models.StatusMastered
	default:
		return models.StatusReview
	}
}

// Preview returns the outcome of grading rec at now with every valid quality.
func Preview(rec models.ReviewRecord, now time.Time) map[models.Quality]models.ReviewRecord {
	out := make(map[models.Quality]models.ReviewRecord, len(models.AllQualities))
	for _, q := range models.AllQualities {
		// valid by construction
		next, _ := Grade(rec, q, now)
		out[q] = next
	}
	return out
}

// NewLog builds the log entry for a grade that produced next.
func NewLog(next models.ReviewRecord, quality models.Quality, now time.Time) models.ReviewLog {
	return models.ReviewLog{
		UserID:       next.UserID,
		VocabularyID: next.VocabularyID,
		Quality:      quality,
		ReviewedAt:   now,
		Interval:     next.Interval,
		Ease:         next.Ease,
	}
}

// Replay re-grades rec with each log in order. Logs must belong to rec.
func Replay(rec models.ReviewRecord, logs []models.ReviewLog) (models.ReviewRecord, error) {
	out := rec
	for i, l := range logs {
		if l.VocabularyID != rec.VocabularyID || l.UserID != rec.UserID {
			return models.ReviewRecord{}, fmt.Errorf("%w: log %d is for %d/%s", ErrLogMismatch, i, l.UserID, l.VocabularyID)
		}
		next, err := Grade(out, l.Quality, l.ReviewedAt)
		if err != nil {
			return models.ReviewRecord{}, fmt.Errorf("replaying log %d: %w", i, err)
		}
		out = next
	}
	return out, nil
}
