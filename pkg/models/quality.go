package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidArgument marks caller errors. Nothing is applied when it is returned.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidQuality is returned for grades outside 0..5.
	ErrInvalidQuality = fmt.Errorf("%w: quality grade must be in 0..5", ErrInvalidArgument)
)

// Quality is the learner's recall grade in SM-2 terms.
type Quality int

const (
	// Complete blackout, unable to recall
	QualityBlackout Quality = 0
	// Incorrect response but remembered upon seeing the correct answer
	QualityIncorrect Quality = 1
	// Incorrect response but the correct answer felt familiar
	QualityIncorrectFamiliar Quality = 2
	// Correct response but required significant effort
	QualityCorrectDifficult Quality = 3
	// Correct response after some hesitation
	QualityCorrectHesitation Quality = 4
	// Perfect response with no hesitation
	QualityPerfect Quality = 5
)

// AllQualities lists the valid grades from lowest to highest.
var AllQualities = []Quality{
	QualityBlackout,
	QualityIncorrect,
	QualityIncorrectFamiliar,
	QualityCorrectDifficult,
	QualityCorrectHesitation,
	QualityPerfect,
}

var qualityNames = [...]string{
	QualityBlackout:          "blackout",
	QualityIncorrect:         "incorrect",
	QualityIncorrectFamiliar: "familiar",
	QualityCorrectDifficult:  "difficult",
	QualityCorrectHesitation: "hesitation",
	QualityPerfect:           "perfect",
}

// IsValid reports whether q is in 0..5.
func (q Quality) IsValid() bool {
	return q >= QualityBlackout && q <= QualityPerfect
}

// IsLapse reports whether q counts as a failed recall.
func (q Quality) IsLapse() bool {
	return q < QualityCorrectDifficult
}

func (q Quality) String() string {
	if q.IsValid() {
		return qualityNames[q]
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// ParseQuality validates a raw grade.
func ParseQuality(n int) (Quality, error) {
	q := Quality(n)
	if !q.IsValid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidQuality, n)
	}
	return q, nil
}

// ParseQualityString parses a grade coming from user input or callback data.
func ParseQualityString(s string) (Quality, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuality, s)
	}
	return ParseQuality(n)
}
