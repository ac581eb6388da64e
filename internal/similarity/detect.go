package similarity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yujeong-lee-1996/temp-kpop/internal/pose"
)

// DefaultProcThreshold is the mean shape residual above which a frame is
// flagged as misaligned.
const DefaultProcThreshold = 0.1

// Reason names why a frame was flagged.
type Reason string

// ShapeMisaligned marks a frame whose shape residual exceeded its threshold.
const ShapeMisaligned Reason = "shape_misaligned"

const anglePrefix = "angle_joint_"

// AngleReason marks a frame whose catalog angle i exceeded its threshold.
func AngleReason(i int) Reason {
	return Reason(anglePrefix + strconv.Itoa(i))
}

// AngleIndex returns the catalog index of an angle reason.
func (r Reason) AngleIndex() (int, bool) {
	s, ok := strings.CutPrefix(string(r), anglePrefix)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return i, true
}

// Report lists the flagged frames in ascending order with the reasons for each.
type Report struct {
	Frames  []int            `json:"bad_frames"`
	Reasons map[int][]Reason `json:"reasons"`
}

// Flagged reports whether frame t was flagged.
func (r *Report) Flagged(t int) bool {
	_, ok := r.Reasons[t]
	return ok
}

// Detect flags every frame where an angle difference exceeds angleThresh or
// the shape residual exceeds procThresh. Angle reasons come first in catalog
// order, followed by the shape reason.
func Detect(angleDiffs [][]float64, procDists []float64, angleThresh, procThresh float64) (*Report, error) {
	if len(angleDiffs) != len(procDists) {
		return nil, &pose.ShapeError{What: "shape residuals", Got: len(procDists), Want: len(angleDiffs)}
	}

	rep := &Report{Frames: []int{}, Reasons: make(map[int][]Reason)}
	for t, row := range angleDiffs {
		if len(row) != pose.NumTriplets {
			return nil, fmt.Errorf("frame %d: %w", t, &pose.ShapeError{What: "angle differences", Got: len(row), Want: pose.NumTriplets})
		}

		var reasons []Reason
		for i, d := range row {
			if d > angleThresh {
				reasons = append(reasons, AngleReason(i))
			}
		}
		if procDists[t] > procThresh {
			reasons = append(reasons, ShapeMisaligned)
		}

		if len(reasons) > 0 {
			rep.Frames = append(rep.Frames, t)
			rep.Reasons[t] = reasons
		}
	}

	return rep, nil
}
