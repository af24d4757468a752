// Package spaced_repetition implements the SM-2 review scheduler and the
// mastery estimate derived from its state.
package spaced_repetition

import (
	"math"
	"strings"
	"time"

	"github.com/example/koinebot/pkg/models"
)

// Quality rates a recall attempt on the 0-5 SM-2 scale.
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

// PassThreshold separates successful recalls from failures. Qualities
// below it reset the repetition ladder.
const PassThreshold = QualityCorrectDifficult

// MinEaseFactor is the floor the ease factor never drops below.
const MinEaseFactor = 1.3

// State is the scheduling state a card carries between reviews.
type State struct {
	EaseFactor    float64
	IntervalDays  float64
	TimesReviewed int
}

// Result is the state after one review plus the computed next review date.
type Result struct {
	State
	NextReviewDate time.Time
}

// Review applies one graded recall to the prior scheduling state. It is a
// pure transform: now is the only clock input, so callers can inject a
// fixed time in tests.
//
// A failed recall (quality below the pass threshold) zeroes both the
// interval and the repetition count, putting the card back at the start of
// the 1-day/6-day warmup ladder. Successful recalls walk the ladder and
// then grow the interval by the ease factor. Ease and interval are rounded
// to two decimals for storage.
func Review(quality Quality, prior State, now time.Time) Result {
	q := float64(quality)
	ease := prior.EaseFactor + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	if ease < MinEaseFactor {
		ease = MinEaseFactor
	}

	var interval float64
	var times int
	if quality < PassThreshold {
		interval = 0
		times = 0
	} else {
		switch prior.TimesReviewed {
		case 0:
			interval = 1
		case 1:
			interval = 6
		default:
			interval = prior.IntervalDays * ease
		}
		times = prior.TimesReviewed + 1
	}

	interval = round2(interval)
	next := now.Add(time.Duration(interval * 24 * float64(time.Hour)))

	return Result{
		State: State{
			EaseFactor:    round2(ease),
			IntervalDays:  interval,
			TimesReviewed: times,
		},
		NextReviewDate: next,
	}
}

// QualityFromVerdict maps an oracle verdict onto the SM-2 scale. Anything
// unrecognized grades as incorrect so the card comes back sooner.
func QualityFromVerdict(verdict models.Verdict) Quality {
	v := models.Verdict(strings.ToLower(strings.TrimSpace(string(verdict))))
	switch v {
	case models.VerdictCorrect:
		return QualityPerfect
	case models.VerdictPartial:
		return QualityCorrectDifficult
	default:
		return QualityIncorrect
	}
}

// Mastery derives a display score in [0, 1] from ease and interval. Ease
// from 1.3 up contributes half the range, intervals up to 180 days the
// other half. It feeds rankings and progress views, never the scheduler.
func Mastery(easeFactor, intervalDays float64) float64 {
	easeScore := (easeFactor - MinEaseFactor) / 4.4
	if easeScore > 0.5 {
		easeScore = 0.5
	}
	intervalScore := intervalDays / 360
	if intervalScore > 0.5 {
		intervalScore = 0.5
	}
	return round2(easeScore + intervalScore)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
