// Package feedback turns flagged angle deviations into directional
// correction messages.
package feedback

import (
	"errors"
	"fmt"
	"math"

	"github.com/yujeong-lee-1996/temp-kpop/internal/geometry"
	"github.com/yujeong-lee-1996/temp-kpop/internal/pose"
)

// DefaultThresholdDeg is the smallest angle difference, in degrees, that
// produces a message.
const DefaultThresholdDeg = 5.0

// ErrUnknownLocale is returned for a locale without a phrasebook.
var ErrUnknownLocale = errors.New("feedback: unknown locale")

// Synthesizer writes per-frame correction messages from interior angles
// measured on unaligned, normalized keypoints.
type Synthesizer struct {
	catalog *pose.Catalog
	// Threshold is in radians.
	Threshold float64
	Locale    Locale
	book      *phrasebook
}

// NewSynthesizer creates a synthesizer. A non-positive thresholdDeg uses
// DefaultThresholdDeg and an empty locale uses DefaultLocale.
func NewSynthesizer(cat *pose.Catalog, thresholdDeg float64, locale Locale) (*Synthesizer, error) {
	if thresholdDeg <= 0 {
		thresholdDeg = DefaultThresholdDeg
	}
	if locale == "" {
		locale = DefaultLocale
	}
	book, ok := phrasebooks[locale]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLocale, locale)
	}

	return &Synthesizer{
		catalog:   cat,
		Threshold: geometry.ToRadians(thresholdDeg),
		Locale:    locale,
		book:      book,
	}, nil
}

// Label returns the display label of catalog angle i.
func (s *Synthesizer) Label(i int) string {
	return s.book.labels[i]
}

// FrameFeedback compares one reference frame with one user frame and returns
// a message for every reportable angle whose difference exceeds the
// threshold, in catalog order. Wrist and ankle angles are never reported.
func (s *Synthesizer) FrameFeedback(ref, user *pose.Frame) []string {
	refPts := geometry.JointPoints(ref)
	userPts := geometry.JointPoints(user)
	refAngles := geometry.ComputeAngles(s.catalog, &refPts)
	userAngles := geometry.ComputeAngles(s.catalog, &userPts)

	msgs := []string{}
	for i := 0; i < s.catalog.Len(); i++ {
		if pose.IsExtremity(i) {
			continue
		}

		r, u := refAngles.Interior[i], userAngles.Interior[i]
		if math.Abs(u-r) <= s.Threshold {
			continue
		}

		var g group
		switch {
		case pose.IsFlex(i):
			g = groupFlex
		case pose.IsShoulder(i):
			g = groupShoulder
		case pose.IsHip(i):
			g = groupHip
		default:
			continue
		}

		refDeg := geometry.ToDegrees(r)
		userDeg := geometry.ToDegrees(u)
		diff := math.Abs(round1(refDeg) - round1(userDeg))
		msgs = append(msgs, s.book.format(g, s.book.labels[i], u < r, refDeg, userDeg, diff))
	}

	return msgs
}

// Generate builds the feedback map for the flagged frames. Frames outside
// the common length of both sequences are ignored.
func (s *Synthesizer) Generate(ref, user pose.Sequence, frames []int) Map {
	n := pose.CommonLength(ref, user)
	out := make(Map, len(frames))
	for _, t := range frames {
		if t < 0 || t >= n {
			continue
		}
		out[t] = s.FrameFeedback(&ref.Frames[t], &user.Frames[t])
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
