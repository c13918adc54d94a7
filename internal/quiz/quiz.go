// Package quiz builds knowledge check questions and maps answers to review grades.
package quiz

import (
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/example/vocabsrs/pkg/models"
)

// DefaultOptions is the number of answer options in a multiple choice question
const DefaultOptions = 4

const blank = "_______"

// Response time thresholds for InferQuality
const (
	FastAnswer = 5 * time.Second
	SlowAnswer = 15 * time.Second
	GaveUp     = 60 * time.Second
)

// Question is a single multiple choice question about a word
type Question struct {
	Word            models.Word
	Options         []string // Possible translations
	CorrectIndex    int      // Index of the correct translation in Options
	ContextSentence string   // Context with the word blanked out, empty if the word has no context
}

// NewMultipleChoice builds a question for word using the translations of
// distractors as wrong options. Options are de-duplicated and shuffled with rnd.
func NewMultipleChoice(word models.Word, distractors []models.Word, rnd *rand.Rand) Question {
	seen := map[string]bool{normalize(word.Translation): true}
	options := []string{word.Translation}
	for _, d := range distractors {
		if len(options) == DefaultOptions {
			break
		}
		key := normalize(d.Translation)
		if d.ID == word.ID || key == "" || seen[key] {
			continue
		}
		seen[key] = true
		options = append(options, d.Translation)
	}

	correct := 0
	rnd.Shuffle(len(options), func(i, j int) {
		switch correct {
		case i:
			correct = j
		case j:
			correct = i
		}
		options[i], options[j] = options[j], options[i]
	})

	q := Question{
		Word:         word,
		Options:      options,
		CorrectIndex: correct,
	}
	if word.Context != "" {
		q.ContextSentence = BlankOut(word.Context, word.Term)
	}
	return q
}

// IsCorrect reports whether option is the index of the right answer
func (q Question) IsCorrect(option int) bool {
	return option == q.CorrectIndex
}

// InferQuality maps a quiz answer to an SM-2 quality grade. Correct answers
// score by response time; a wrong answer after a long pause counts as a blackout.
func InferQuality(correct bool, elapsed time.Duration) models.Quality {
	if !correct {
		if elapsed >= GaveUp {
			return models.QualityBlackout
		}
		return models.QualityIncorrect
	}
	switch {
	case elapsed < FastAnswer:
		return models.QualityPerfect
	case elapsed < SlowAnswer:
		return models.QualityCorrectHesitation
	default:
		return models.QualityCorrectDifficult
	}
}

// BlankOut replaces the first whole-word, case-insensitive occurrence of term
// in sentence with a blank. If term does not occur the blank is appended.
func BlankOut(sentence, term string) string {
	term = strings.TrimSpace(term)
	if term == "" {
		return sentence
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
	loc := re.FindStringIndex(sentence)
	if loc == nil {
		return sentence + " " + blank
	}
	return sentence[:loc[0]] + blank + sentence[loc[1]:]
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
