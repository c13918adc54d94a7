package spaced_repetition

import (
	"math/rand"
	"testing"
	"time"

	"github.com/example/vocabsrs/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func days(n int) time.Duration { return time.Duration(n) * Day }

func mustGrade(t *testing.T, rec models.ReviewRecord, q models.Quality, now time.Time) models.ReviewRecord {
	t.Helper()
	next, err := Grade(rec, q, now)
	require.NoError(t, err)
	return next
}

func TestCreateNewReview(t *testing.T) {
	rec := CreateNewReview(42, "w-1", t0)

	assert.Equal(t, int64(42), rec.UserID)
	assert.Equal(t, models.VocabularyID("w-1"), rec.VocabularyID)
	assert.Equal(t, 2.5, rec.Ease)
	assert.Equal(t, 1, rec.Interval)
	assert.Equal(t, 0, rec.Repetitions)
	assert.Equal(t, models.StatusNew, rec.Status)
	assert.True(t, rec.NextReviewDate.Equal(t0))
	assert.Nil(t, rec.LastReviewDate)
	assert.Zero(t, rec.TotalReviews)
	assert.Zero(t, rec.CorrectCount)
	assert.True(t, IsDue(rec, t0), "new record is due immediately")
}

// The four steps below chain into each other.
func TestGradeScenario(t *testing.T) {
	rec := CreateNewReview(1, "w", t0)

	rec = mustGrade(t, rec, models.QualityPerfect, t0)
	assert.Equal(t, 1, rec.Repetitions)
	assert.Equal(t, 1, rec.Interval)
	assert.InDelta(t, 2.6, rec.Ease, easeDelta)
	assert.True(t, rec.NextReviewDate.Equal(t0.Add(days(1))))
	assert.Equal(t, models.StatusReview, rec.Status)

	rec = mustGrade(t, rec, models.QualityPerfect, t0.Add(days(1)))
	assert.Equal(t, 2, rec.Repetitions)
	assert.Equal(t, 6, rec.Interval)
	assert.InDelta(t, 2.7, rec.Ease, easeDelta)
	assert.Equal(t, models.StatusReview, rec.Status)

	rec = mustGrade(t, rec, models.QualityPerfect, t0.Add(days(7)))
	assert.Equal(t, 3, rec.Repetitions)
	assert.Equal(t, 16, rec.Interval)
	assert.InDelta(t, 2.8, rec.Ease, easeDelta)
	assert.Equal(t, models.StatusReview, rec.Status)
	assert.True(t, rec.NextReviewDate.Equal(t0.Add(days(23))))

	rec = mustGrade(t, rec, models.QualityIncorrect, t0.Add(days(23)))
	assert.Equal(t, 0, rec.Repetitions)
	assert.Equal(t, 1, rec.Interval)
	assert.InDelta(t, 2.6, rec.Ease, easeDelta)
	assert.Equal(t, models.StatusLearning, rec.Status)

	assert.Equal(t, 4, rec.TotalReviews)
	assert.Equal(t, 3, rec.CorrectCount)
	require.NotNil(t, rec.LastReviewDate)
	assert.True(t, rec.LastReviewDate.Equal(t0.Add(days(23))))
}

func TestGradeDifficultSuccessLowersEase(t *testing.T) {
	rec := mustGrade(t, CreateNewReview(1, "w", t0), models.QualityCorrectDifficult, t0)

	assert.InDelta(t, 2.36, rec.Ease, easeDelta)
	assert.Equal(t, 1, rec.Repetitions)
	assert.Equal(t, 1, rec.Interval)
	assert.Equal(t, 1, rec.CorrectCount)
}

func TestGradeLeavesInputUntouched(t *testing.T) {
	rec := mustGrade(t, CreateNewReview(1, "w", t0), models.QualityPerfect, t0)
	before := rec
	beforeLast := *rec.LastReviewDate

	next := mustGrade(t, rec, models.QualityIncorrect, t0.Add(days(1)))

	assert.Equal(t, before, rec)
	assert.True(t, rec.LastReviewDate.Equal(beforeLast))
	assert.NotSame(t, rec.LastReviewDate, next.LastReviewDate)
}

func TestGradeInvalidQualityAppliesNothing(t *testing.T) {
	rec := CreateNewReview(1, "w", t0)
	before := rec

	_, err := Grade(rec, models.Quality(7), t0)

	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, before, rec)
}

func TestGradeKeepsVersion(t *testing.T) {
	rec := CreateNewReview(1, "w", t0)
	rec.Version = 9

	next := mustGrade(t, rec, models.QualityPerfect, t0)
	assert.Equal(t, int64(9), next.Version)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		repetitions int
		ease        float64
		interval    int
		want        models.Status
	}{
		{"lapsed", 0, 2.9, 100, models.StatusLearning},
		{"one success", 1, 2.5, 1, models.StatusReview},
		{"four successes", 4, 3.0, 90, models.StatusReview},
		{"mastered", 5, 2.6, 31, models.StatusMastered},
		{"ease not above threshold", 5, 2.5, 31, models.StatusReview},
		{"interval not above threshold", 5, 2.6, 30, models.StatusReview},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.repetitions, tt.ease, tt.interval))
		})
	}
}

func TestMasteredRegressesOnLapse(t *testing.T) {
	rec := CreateNewReview(1, "w", t0)
	now := t0
	for i := 0; i < 5; i++ {
		rec = mustGrade(t, rec, models.QualityPerfect, now)
		now = rec.NextReviewDate
	}
	require.Equal(t, models.StatusMastered, rec.Status)
	assert.Greater(t, rec.Interval, 30)

	rec = mustGrade(t, rec, models.QualityIncorrectFamiliar, now)
	assert.Equal(t, models.StatusLearning, rec.Status)
	assert.Equal(t, 1, rec.Interval)
	assert.Equal(t, 0, rec.Repetitions)
}

func TestGradeInvariantsOverLongRuns(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for run := 0; run < 50; run++ {
		rec := CreateNewReview(1, "w", t0)
		now := t0
		for n := 1; n <= 200; n++ {
			q := models.Quality(rnd.Intn(6))
			rec = mustGrade(t, rec, q, now)

			require.GreaterOrEqual(t, rec.Ease, MinEase)
			require.GreaterOrEqual(t, rec.Interval, 1)
			require.LessOrEqual(t, rec.Interval, MaxInterval)
			require.LessOrEqual(t, rec.CorrectCount, rec.TotalReviews)
			require.Equal(t, n, rec.TotalReviews)
			require.NotEqual(t, models.StatusNew, rec.Status)
			require.True(t, rec.NextReviewDate.Equal(now.Add(days(rec.Interval))))
			if q.IsLapse() {
				require.Equal(t, 0, rec.Repetitions)
				require.Equal(t, 1, rec.Interval)
			}
			now = now.Add(time.Duration(rnd.Intn(48)) * time.Hour)
		}
	}
}

func TestGradeLongSuccessStreak(t *testing.T) {
	rec := CreateNewReview(1, "w", t0)
	for n := 1; n <= 60; n++ {
		rec = mustGrade(t, rec, models.QualityPerfect, t0)

		require.GreaterOrEqual(t, rec.Interval, 1, "grade %d", n)
		require.LessOrEqual(t, rec.Interval, MaxInterval, "grade %d", n)
		require.True(t, rec.NextReviewDate.After(t0), "grade %d", n)
		require.True(t, rec.NextReviewDate.Equal(t0.Add(days(rec.Interval))), "grade %d", n)
		require.False(t, IsDue(rec, t0), "grade %d", n)
	}
	assert.Equal(t, MaxInterval, rec.Interval)
	assert.Equal(t, models.StatusMastered, rec.Status)
}

func TestPreview(t *testing.T) {
	rec := CreateNewReview(1, "w", t0)
	out := Preview(rec, t0)

	require.Len(t, out, 6)
	assert.Equal(t, models.StatusLearning, out[models.QualityBlackout].Status)
	assert.Equal(t, models.StatusReview, out[models.QualityPerfect].Status)
	assert.Equal(t, models.StatusNew, rec.Status)
}

func TestReplay(t *testing.T) {
	start := CreateNewReview(3, "w", t0)
	grades := []models.Quality{5, 4, 2, 3, 5}

	want := start
	var logs []models.ReviewLog
	now := t0
	for _, q := range grades {
		want = mustGrade(t, want, q, now)
		logs = append(logs, NewLog(want, q, now))
		now = want.NextReviewDate
	}

	got, err := Replay(start, logs)
	require.NoError(t, err)
	assert.Equal(t, want.Interval, got.Interval)
	assert.Equal(t, want.Repetitions, got.Repetitions)
	assert.InDelta(t, want.Ease, got.Ease, easeDelta)
	assert.Equal(t, want.TotalReviews, got.TotalReviews)
	assert.True(t, want.NextReviewDate.Equal(got.NextReviewDate))
}

func TestReplayRejectsForeignLog(t *testing.T) {
	start := CreateNewReview(3, "w", t0)
	logs := []models.ReviewLog{{UserID: 3, VocabularyID: "other", Quality: 5, ReviewedAt: t0}}

	_, err := Replay(start, logs)
	assert.ErrorIs(t, err, ErrLogMismatch)
}
