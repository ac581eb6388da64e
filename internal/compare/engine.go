// Package compare runs one reference-versus-user pose comparison end to end:
// preprocessing, scoring, detection, feedback and score artifacts.
package compare

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/yujeong-lee-1996/temp-kpop/internal/config"
	"github.com/yujeong-lee-1996/temp-kpop/internal/feedback"
	"github.com/yujeong-lee-1996/temp-kpop/internal/geometry"
	"github.com/yujeong-lee-1996/temp-kpop/internal/pose"
	"github.com/yujeong-lee-1996/temp-kpop/internal/similarity"
	"github.com/yujeong-lee-1996/temp-kpop/internal/trajectory"
)

// Options are the parameters of a comparison run.
type Options struct {
	FPS          int
	SmoothWindow int
	AngleWeight  float64
	Workers      int
	DTWWindow    int

	ProcThreshold        float64
	AnglePercentile      float64
	MinAngleThresholdDeg float64

	ReportThresholdDeg float64
	Locale             feedback.Locale
}

// DefaultOptions returns the parameters of the standard pipeline.
func DefaultOptions() Options {
	return OptionsFromTuning(&config.Tuning{})
}

// OptionsFromTuning maps a tuning file onto run options.
func OptionsFromTuning(t *config.Tuning) Options {
	return Options{
		FPS:                  t.GetFPS(),
		SmoothWindow:         t.GetSmoothWindow(),
		AngleWeight:          t.GetAngleWeight(),
		Workers:              t.GetWorkers(),
		DTWWindow:            t.GetDTWWindow(),
		ProcThreshold:        t.GetProcThreshold(),
		AnglePercentile:      t.GetAnglePercentile(),
		MinAngleThresholdDeg: t.GetMinAngleThresholdDeg(),
		ReportThresholdDeg:   t.GetReportThresholdDeg(),
		Locale:               feedback.Locale(t.GetLocale()),
	}
}

// Timings records how long each stage of a run took.
type Timings struct {
	Preprocess time.Duration `json:"preprocess"`
	Scoring    time.Duration `json:"scoring"`
	Detection  time.Duration `json:"detection"`
	Feedback   time.Duration `json:"feedback"`
	Total      time.Duration `json:"total"`
}

// Result is everything one comparison run produced.
type Result struct {
	FPS    int                          `json:"fps"`
	Frames []similarity.FrameSimilarity `json:"frames"`
	Stats  similarity.Statistics        `json:"statistics"`
	Report *similarity.Report           `json:"report"`
	// Feedback holds the messages of each flagged frame.
	Feedback feedback.Map             `json:"feedback"`
	Scores   similarity.ScoreArtifact `json:"scores"`
	// TrajectoryDistance is the length-normalized DTW distance between the
	// smoothed root trajectories. It does not feed any score and is zero
	// when either sequence is empty.
	TrajectoryDistance float64 `json:"trajectory_distance"`
	Timings            Timings `json:"timings"`
}

// MeanScore returns the average final score over all frames.
func (r *Result) MeanScore() float64 {
	if len(r.Scores.FrameScores) == 0 {
		return 0
	}
	return stat.Mean(r.Scores.FrameScores, nil)
}

// Engine compares pose sequences. It holds no per-run state and is safe for
// concurrent use.
type Engine struct {
	catalog *pose.Catalog
	opts    Options
	scorer  *similarity.Scorer
	synth   *feedback.Synthesizer
}

// New creates an engine over the default catalog.
func New(opts Options) (*Engine, error) {
	cat := pose.DefaultCatalog()

	synth, err := feedback.NewSynthesizer(cat, opts.ReportThresholdDeg, opts.Locale)
	if err != nil {
		return nil, err
	}

	return &Engine{
		catalog: cat,
		opts:    opts,
		scorer: similarity.NewScorer(cat, similarity.Config{
			AngleWeight: opts.AngleWeight,
			Workers:     opts.Workers,
		}),
		synth: synth,
	}, nil
}

// NewFromTuning creates an engine from a tuning file.
func NewFromTuning(t *config.Tuning) (*Engine, error) {
	return New(OptionsFromTuning(t))
}

// Options returns the engine's run parameters.
func (e *Engine) Options() Options {
	return e.opts
}

// CompareFiles loads two keypoint files and compares them.
func (e *Engine) CompareFiles(ctx context.Context, refPath, userPath string) (*Result, error) {
	ref, err := pose.LoadFile(refPath, e.opts.FPS)
	if err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	user, err := pose.LoadFile(userPath, e.opts.FPS)
	if err != nil {
		return nil, fmt.Errorf("user: %w", err)
	}
	return e.Compare(ctx, ref, user)
}

// CompareRaw parses two keypoint documents and compares them.
func (e *Engine) CompareRaw(ctx context.Context, refJSON, userJSON []byte) (*Result, error) {
	ref, err := pose.Load(refJSON, e.opts.FPS)
	if err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	user, err := pose.Load(userJSON, e.opts.FPS)
	if err != nil {
		return nil, fmt.Errorf("user: %w", err)
	}
	return e.Compare(ctx, ref, user)
}

// Compare runs the full pipeline on two raw sequences. Both are truncated to
// their common length after preprocessing.
func (e *Engine) Compare(ctx context.Context, ref, user pose.Sequence) (*Result, error) {
	start := time.Now()
	res := &Result{FPS: ref.FPS}
	if res.FPS <= 0 {
		res.FPS = e.opts.FPS
	}

	// Step 1: preprocess both sequences
	refStages := pose.PreprocessStages(ref, e.opts.SmoothWindow)
	userStages := pose.PreprocessStages(user, e.opts.SmoothWindow)

	n := pose.CommonLength(refStages.Normalized, userStages.Normalized)
	refN := refStages.Normalized.Truncate(n)
	userN := userStages.Normalized.Truncate(n)
	if ref.Len() != user.Len() {
		Logf("Truncating comparison to %d frames (reference %d, user %d)", n, ref.Len(), user.Len())
	}
	res.Timings.Preprocess = time.Since(start)

	// Step 2: run-wide root statistics, then the per-frame pass alongside DTW
	stageStart := time.Now()
	stats := similarity.RootStatistics(refN, userN)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		frames, err := e.scorer.Score(gctx, refN, userN, stats)
		if err != nil {
			return fmt.Errorf("score frames: %w", err)
		}
		res.Frames = frames
		return nil
	})
	g.Go(func() error {
		dtw := trajectory.DTW(
			trajectory.RootTrajectory(refStages.Smoothed),
			trajectory.RootTrajectory(userStages.Smoothed),
			trajectory.Options{Window: e.opts.DTWWindow},
		)
		if d := dtw.Normalized(); !math.IsInf(d, 0) {
			res.TrajectoryDistance = d
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res.Timings.Scoring = time.Since(stageStart)

	// Step 3: adaptive threshold over the whole run, then detection
	stageStart = time.Now()
	stats.AngleThreshold = similarity.AngleThreshold(
		res.Frames,
		e.opts.AnglePercentile,
		geometry.ToRadians(e.opts.MinAngleThresholdDeg),
	)
	res.Stats = stats

	diffs, residuals := similarity.AngleDiffMatrix(res.Frames)
	report, err := similarity.Detect(diffs, residuals, stats.AngleThreshold, e.opts.ProcThreshold)
	if err != nil {
		return nil, fmt.Errorf("detect misalignment: %w", err)
	}
	res.Report = report
	res.Timings.Detection = time.Since(stageStart)

	// Step 4: feedback from the unaligned, normalized frames
	stageStart = time.Now()
	res.Feedback = e.synth.Generate(refN, userN, report.Frames)
	res.Timings.Feedback = time.Since(stageStart)

	res.Scores = similarity.NewScoreArtifact(res.Frames, res.FPS)
	res.Timings.Total = time.Since(start)

	Logf("Compared %d frames: mean score %.3f, %d flagged frames, %d messages (took %v)",
		n, res.MeanScore(), len(report.Frames), res.Feedback.Count(), res.Timings.Total)

	return res, nil
}
