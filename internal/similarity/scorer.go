// Package similarity scores a user pose sequence against a reference and
// flags the frames and joints that diverge most.
package similarity

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/yujeong-lee-1996/temp-kpop/internal/geometry"
	"github.com/yujeong-lee-1996/temp-kpop/internal/pose"
)

// DefaultAngleWeight is the share of the angle similarity in the pose score.
const DefaultAngleWeight = 0.6

// rootEpsilon keeps the move score finite when both roots never diverge.
const rootEpsilon = 1e-6

// Config controls a Scorer.
type Config struct {
	AngleWeight float64
	// Workers bounds the frames scored concurrently. Zero means GOMAXPROCS.
	Workers int
}

// DefaultConfig returns the standard scoring weights.
func DefaultConfig() Config {
	return Config{AngleWeight: DefaultAngleWeight}
}

// FrameSimilarity is the comparison of one reference frame with the
// corresponding user frame. Scores are not clamped and may go negative.
type FrameSimilarity struct {
	Index         int       `json:"frame"`
	PoseScore     float64   `json:"pose_score"`
	MoveScore     float64   `json:"move_score"`
	FinalScore    float64   `json:"final_score"`
	AngleDiffs    []float64 `json:"angle_diffs"`
	ShapeResidual float64   `json:"shape_residual"`
}

// Statistics are the run-wide values the per-frame pass depends on. They are
// computed over the whole run before any frame consumes them.
type Statistics struct {
	MaxRootDistance float64 `json:"max_root_distance"`
	AngleThreshold  float64 `json:"angle_threshold"`
}

// RootStatistics returns the largest distance between corresponding mid-hip
// roots over the common length of both sequences, plus a small epsilon.
func RootStatistics(ref, user pose.Sequence) Statistics {
	n := pose.CommonLength(ref, user)
	var maxDist float64
	for t := 0; t < n; t++ {
		d := ref.Frames[t].Root().Sub(user.Frames[t].Root()).Norm()
		maxDist = math.Max(maxDist, d)
	}
	return Statistics{MaxRootDistance: maxDist + rootEpsilon}
}

// Scorer compares preprocessed pose sequences frame by frame.
type Scorer struct {
	catalog *pose.Catalog
	cfg     Config
}

// NewScorer creates a scorer over the given catalog.
func NewScorer(cat *pose.Catalog, cfg Config) *Scorer {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Scorer{catalog: cat, cfg: cfg}
}

// Score compares every frame of the common length of ref and user. Both
// sequences must already be preprocessed. stats.MaxRootDistance must come
// from RootStatistics over the same sequences.
func (s *Scorer) Score(ctx context.Context, ref, user pose.Sequence, stats Statistics) ([]FrameSimilarity, error) {
	n := pose.CommonLength(ref, user)
	ref = ref.Truncate(n)
	user = user.Truncate(n)

	out := make([]FrameSimilarity, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for t := 0; t < n; t++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fs, err := s.frame(&ref.Frames[t], &user.Frames[t], stats.MaxRootDistance)
			if err != nil {
				return fmt.Errorf("frame %d: %w", t, err)
			}
			fs.Index = t
			out[t] = fs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// frame aligns the user frame onto the reference and blends angle, shape
// and root-position agreement into the frame scores.
func (s *Scorer) frame(ref, user *pose.Frame, maxRoot float64) (FrameSimilarity, error) {
	refPts := geometry.JointPoints(ref)
	al, err := geometry.Align(geometry.FramePoints(user), refPts[:])
	if err != nil {
		return FrameSimilarity{}, err
	}

	var aligned [pose.NumJoints]pose.Point3D
	if copy(aligned[:], al.Aligned) != pose.NumJoints {
		return FrameSimilarity{}, &pose.ShapeError{What: "aligned joints", Got: len(al.Aligned), Want: pose.NumJoints}
	}

	refAngles := geometry.ComputeAngles(s.catalog, &refPts)
	userAngles := geometry.ComputeAngles(s.catalog, &aligned)

	diffs := make([]float64, s.catalog.Len())
	for i := range diffs {
		if pose.IsFlex(i) {
			// Signed bend catches bending the wrong way.
			diffs[i] = math.Abs(userAngles.Bend[i] - refAngles.Bend[i])
			continue
		}
		diffs[i] = math.Abs(refAngles.Interior[i] - userAngles.Interior[i])
	}

	angleSim := 1 - stat.Mean(diffs, nil)/math.Pi
	shapeSim := 1 - al.MeanResidual
	poseScore := s.cfg.AngleWeight*angleSim + (1-s.cfg.AngleWeight)*shapeSim
	moveScore := 1 - ref.Root().Sub(user.Root()).Norm()/maxRoot

	return FrameSimilarity{
		PoseScore:     poseScore,
		MoveScore:     moveScore,
		FinalScore:    0.5*poseScore + 0.5*moveScore,
		AngleDiffs:    diffs,
		ShapeResidual: al.MeanResidual,
	}, nil
}

// FinalScores extracts the final score of every frame.
func FinalScores(frames []FrameSimilarity) []float64 {
	out := make([]float64, len(frames))
	for i, f := range frames {
		out[i] = f.FinalScore
	}
	return out
}

// AngleDiffMatrix returns the T x M angle differences and the T shape
// residuals of the scored frames.
func AngleDiffMatrix(frames []FrameSimilarity) ([][]float64, []float64) {
	diffs := make([][]float64, len(frames))
	residuals := make([]float64, len(frames))
	for i, f := range frames {
		diffs[i] = f.AngleDiffs
		residuals[i] = f.ShapeResidual
	}
	return diffs, residuals
}
