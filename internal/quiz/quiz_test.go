package quiz

import (
	"math/rand"
	"testing"
	"time"

	"github.com/example/vocabsrs/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func word(id, term, translation string) models.Word {
	return models.Word{ID: models.VocabularyID(id), Term: term, Translation: translation}
}

func TestNewMultipleChoice(t *testing.T) {
	target := word("1", "apple", "яблоко")
	target.Context = "An Apple a day keeps the doctor away."
	distractors := []models.Word{
		word("2", "pear", "груша"),
		word("3", "plum", "слива"),
		word("1", "apple", "яблоко"),
		word("4", "apple tree", " Яблоко "),
		word("5", "cherry", "вишня"),
		word("6", "peach", "персик"),
	}

	for seed := int64(0); seed < 20; seed++ {
		q := NewMultipleChoice(target, distractors, rand.New(rand.NewSource(seed)))

		require.Len(t, q.Options, DefaultOptions)
		assert.Equal(t, "яблоко", q.Options[q.CorrectIndex])
		assert.True(t, q.IsCorrect(q.CorrectIndex))
		assert.ElementsMatch(t, []string{"яблоко", "груша", "слива", "вишня"}, q.Options)
		assert.Equal(t, "An _______ a day keeps the doctor away.", q.ContextSentence)
	}
}

func TestNewMultipleChoiceFewDistractors(t *testing.T) {
	q := NewMultipleChoice(word("1", "apple", "яблоко"), nil, rand.New(rand.NewSource(1)))

	assert.Equal(t, []string{"яблоко"}, q.Options)
	assert.Equal(t, 0, q.CorrectIndex)
	assert.False(t, q.IsCorrect(1))
	assert.Empty(t, q.ContextSentence)
}

func TestInferQuality(t *testing.T) {
	tests := []struct {
		name    string
		correct bool
		elapsed time.Duration
		want    models.Quality
	}{
		{"fast correct", true, time.Second, models.QualityPerfect},
		{"correct at fast threshold", true, FastAnswer, models.QualityCorrectHesitation},
		{"slow correct", true, 10 * time.Second, models.QualityCorrectHesitation},
		{"very slow correct", true, 2 * time.Minute, models.QualityCorrectDifficult},
		{"wrong", false, time.Second, models.QualityIncorrect},
		{"wrong after long pause", false, GaveUp, models.QualityBlackout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InferQuality(tt.correct, tt.elapsed)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, !tt.correct, got.IsLapse())
		})
	}
}

func TestBlankOut(t *testing.T) {
	assert.Equal(t, "I _______ here.", BlankOut("I live here.", "live"))
	assert.Equal(t, "Olive oil. _______!", BlankOut("Olive oil. Live!", "live"))
	assert.Equal(t, "No match _______", BlankOut("No match", "word"))
	assert.Equal(t, "_______ is a sum", BlankOut("a+b is a sum", "a+b"))
	assert.Equal(t, "unchanged", BlankOut("unchanged", " "))
}
