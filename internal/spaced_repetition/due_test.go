package spaced_repetition

import (
	"testing"
	"time"

	"github.com/example/vocabsrs/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordDueAt(id string, at time.Time) models.ReviewRecord {
	return models.ReviewRecord{VocabularyID: models.VocabularyID(id), NextReviewDate: at, Ease: InitialEase, Interval: 1}
}

func ids(records []models.ReviewRecord) []models.VocabularyID {
	out := make([]models.VocabularyID, len(records))
	for i, r := range records {
		out[i] = r.VocabularyID
	}
	return out
}

func TestIsDue(t *testing.T) {
	rec := recordDueAt("a", t0.Add(days(1)))

	assert.True(t, IsDue(rec, t0.Add(days(1))), "due exactly at next review date")
	assert.True(t, IsDue(rec, t0.Add(days(2))))
	assert.False(t, IsDue(rec, t0.Add(days(1)).Add(-time.Second)))
	assert.False(t, IsDue(rec, t0))
}

func TestIsDueWithoutNextReviewDate(t *testing.T) {
	assert.False(t, IsDue(models.ReviewRecord{VocabularyID: "a"}, t0))
}

func TestDueCount(t *testing.T) {
	records := []models.ReviewRecord{
		recordDueAt("a", t0),
		recordDueAt("b", t0.Add(days(1))),
		recordDueAt("c", t0.Add(-days(3))),
		{VocabularyID: "d"},
	}

	assert.Equal(t, 2, DueCount(records, t0))
	assert.Equal(t, 3, DueCount(records, t0.Add(days(1))))
	assert.Equal(t, 0, DueCount(nil, t0))
}

func TestOrderByDueDate(t *testing.T) {
	input := []models.ReviewRecord{
		recordDueAt("c", t0.Add(days(2))),
		recordDueAt("a", t0),
		recordDueAt("b", t0.Add(days(1))),
	}

	got := OrderByDueDate(input)

	assert.Equal(t, []models.VocabularyID{"a", "b", "c"}, ids(got))
	assert.Equal(t, []models.VocabularyID{"c", "a", "b"}, ids(input), "input must not be reordered")
	assert.Equal(t, got, OrderByDueDate(got), "ordering is idempotent")
}

func TestOrderByDueDateIsStable(t *testing.T) {
	input := []models.ReviewRecord{
		recordDueAt("x2", t0.Add(days(1))),
		recordDueAt("y1", t0),
		recordDueAt("x1", t0.Add(days(1))),
		recordDueAt("y2", t0),
		recordDueAt("x3", t0.Add(days(1))),
	}

	got := OrderByDueDate(input)

	assert.Equal(t, []models.VocabularyID{"y1", "y2", "x2", "x1", "x3"}, ids(got))
}

func TestOrderByDueDateEmpty(t *testing.T) {
	assert.Empty(t, OrderByDueDate(nil))
}

func TestNextDue(t *testing.T) {
	records := []models.ReviewRecord{
		recordDueAt("late", t0.Add(days(5))),
		recordDueAt("b", t0.Add(-time.Hour)),
		recordDueAt("a", t0.Add(-days(2))),
		recordDueAt("c", t0),
	}

	assert.Equal(t, []models.VocabularyID{"a", "b", "c"}, ids(NextDue(records, t0, 0)))
	assert.Equal(t, []models.VocabularyID{"a", "b"}, ids(NextDue(records, t0, 2)))
}

func TestSummarize(t *testing.T) {
	fresh := CreateNewReview(1, "fresh", t0)
	good := mustGrade(t, CreateNewReview(1, "good", t0), models.QualityPerfect, t0)
	bad := mustGrade(t, CreateNewReview(1, "bad", t0), models.QualityBlackout, t0)

	s := Summarize([]models.ReviewRecord{fresh, good, bad}, t0)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Due)
	assert.Equal(t, 1, s.ByStatus[models.StatusNew])
	assert.Equal(t, 1, s.ByStatus[models.StatusReview])
	assert.Equal(t, 1, s.ByStatus[models.StatusLearning])
	assert.Equal(t, 2, s.Reviews)
	assert.Equal(t, 1, s.Correct)
	assert.InDelta(t, 0.5, s.Accuracy, 1e-9)
	assert.InDelta(t, (2.5+2.6+2.3)/3, s.AverageEase, 1e-9)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, t0)
	require.NotNil(t, s.ByStatus)
	assert.Zero(t, s.Accuracy)
	assert.Zero(t, s.AverageEase)
}
