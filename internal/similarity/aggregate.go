package similarity

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ScoreArtifact is the persisted score output of one run.
type ScoreArtifact struct {
	FrameScores  []float64 `json:"frame_scores"`
	SecondScores []float64 `json:"second_scores"`
}

// NewScoreArtifact collects the frame scores and their per-second averages.
func NewScoreArtifact(frames []FrameSimilarity, fps int) ScoreArtifact {
	scores := FinalScores(frames)
	return ScoreArtifact{
		FrameScores:  scores,
		SecondScores: AggregatePerSecond(scores, fps),
	}
}

// AggregatePerSecond averages consecutive, non-overlapping blocks of fps
// scores. A trailing partial block is dropped.
func AggregatePerSecond(scores []float64, fps int) []float64 {
	if fps <= 0 {
		return []float64{}
	}
	num := len(scores) / fps
	out := make([]float64, num)
	for i := 0; i < num; i++ {
		out[i] = stat.Mean(scores[i*fps:(i+1)*fps], nil)
	}
	return out
}

// Percentile returns the p-th percentile (0..100) of values, linearly
// interpolating between the two closest ranks. Returns NaN for no values.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p = math.Max(0, math.Min(100, p))
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// AngleThreshold returns the adaptive detection threshold: the given
// percentile of every angle difference in the run, never below floor.
func AngleThreshold(frames []FrameSimilarity, percentile, floor float64) float64 {
	var all []float64
	for _, f := range frames {
		all = append(all, f.AngleDiffs...)
	}
	if len(all) == 0 {
		return floor
	}
	return math.Max(Percentile(all, percentile), floor)
}
