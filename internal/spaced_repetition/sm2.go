// Package spaced_repetition implements the SM-2 review scheduler: the interval
// calculator, the review record lifecycle and the due-item queries.
//
// Every function here is pure. The current time is always passed in by the
// caller; nothing in this package reads the wall clock.
package spaced_repetition

import (
	"fmt"
	"math"

	"github.com/example/vocabsrs/pkg/models"
)

// ErrInvalidArgument is returned when a grade is outside 0..5.
var ErrInvalidArgument = models.ErrInvalidArgument

const (
	// MinEase is the lower bound of the easiness factor
	MinEase = 1.3
	// InitialEase is assigned to freshly introduced items
	InitialEase = 2.5
	// InitialInterval is the interval of a new record and of every lapse, in days
	InitialInterval = 1
	// SecondInterval follows the second consecutive success
	SecondInterval = 6
	// MaxInterval caps the interval, in days, so that due dates stay
	// representable as now + interval*Day.
	MaxInterval = 36500

	lapseEasePenalty = 0.2
)

// Transition is the result of one SM-2 step.
type Transition struct {
	Interval    int
	Repetitions int
	Ease        float64
}

// ComputeTransition applies one SM-2 step to (interval, repetitions, ease).
//
// A grade outside 0..5 is rejected rather than clamped.
func ComputeTransition(interval, repetitions int, ease float64, quality models.Quality) (Transition, error) {
	if !quality.IsValid() {
		return Transition{}, fmt.Errorf("%w: %d", models.ErrInvalidQuality, int(quality))
	}

	if quality.IsLapse() {
		return Transition{
			Interval:    InitialInterval,
			Repetitions: 0,
			Ease:        math.Max(MinEase, ease-lapseEasePenalty),
		}, nil
	}

	next := Transition{Repetitions: repetitions + 1}
	switch next.Repetitions {
	case 1:
		next.Interval = InitialInterval
	case 2:
		next.Interval = SecondInterval
	default:
		// pre-update ease; math.Round rounds half away from zero
		next.Interval = int(math.Min(math.Round(float64(interval)*ease), MaxInterval))
	}
	next.Ease = math.Max(MinEase, nextEase(ease, quality))
	return next, nil
}

// nextEase is the SM-2 easiness update. A grade of 3 lowers ease by 0.14,
// 4 keeps it and 5 raises it by 0.1.
func nextEase(ease float64, quality models.Quality) float64 {
	d := float64(5 - quality)
	return ease + (0.1 - d*(0.08+d*0.02))
}
