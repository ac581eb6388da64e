package compare

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yujeong-lee-1996/temp-kpop/internal/feedback"
	"github.com/yujeong-lee-1996/temp-kpop/internal/pose"
	"github.com/yujeong-lee-1996/temp-kpop/internal/pose/posetest"
)

func TestMain(m *testing.M) {
	SetLogger(nil)
	os.Exit(m.Run())
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(DefaultOptions())
	require.NoError(t, err)
	return e
}

func TestCompare_IdenticalSequences(t *testing.T) {
	e := newEngine(t)
	seq := posetest.Sequence(60, 30)

	res, err := e.Compare(context.Background(), seq, seq)
	require.NoError(t, err)

	require.Len(t, res.Frames, 60)
	for _, f := range res.Frames {
		assert.InDelta(t, 1.0, f.FinalScore, 1e-6, "frame %d", f.Index)
		assert.InDelta(t, 1.0, f.MoveScore, 1e-12, "frame %d", f.Index)
	}
	assert.Empty(t, res.Report.Frames)
	assert.Equal(t, 0, res.Feedback.Count())
	assert.Len(t, res.Scores.FrameScores, 60)
	assert.Len(t, res.Scores.SecondScores, 2)
	assert.InDelta(t, 0, res.TrajectoryDistance, 1e-9)
	assert.InDelta(t, 1.0, res.MeanScore(), 1e-6)
}

func TestCompare_BentElbow(t *testing.T) {
	e := newEngine(t)
	ref := posetest.Sequence(40, 30)
	user := posetest.BentRightElbow(40, 30, 10, 20, -40)

	res, err := e.Compare(context.Background(), ref, user)
	require.NoError(t, err)

	// Frames whose whole smoothing window is bent differ by exactly 40 degrees.
	want := "right elbow: straighten (reference 164.9° / you 124.9° / difference 40.0°)"
	for tt := 12; tt <= 17; tt++ {
		require.True(t, res.Report.Flagged(tt), "frame %d should be flagged", tt)
		assert.Equal(t, []string{want}, res.Feedback[tt], "frame %d", tt)
	}

	// Frames far from the bend are untouched.
	for _, tt := range []int{0, 1, 2, 30, 39} {
		assert.False(t, res.Report.Flagged(tt), "frame %d should not be flagged", tt)
		assert.InDelta(t, 1.0, res.Frames[tt].FinalScore, 1e-6, "frame %d", tt)
	}

	// Every flagged frame has a feedback entry, even when it has no message.
	for _, tt := range res.Report.Frames {
		_, ok := res.Feedback[tt]
		assert.True(t, ok, "frame %d missing from feedback", tt)
	}

	assert.Less(t, res.Frames[14].PoseScore, res.Frames[0].PoseScore)
	assert.Len(t, res.Scores.SecondScores, 1)
}

func TestCompare_StraightenedElbowSaysBend(t *testing.T) {
	e := newEngine(t)
	// Both dancers hold the right elbow at about 90 degrees; the user opens
	// it by 40 degrees for frames [10, 20).
	ref := posetest.BentRightElbow(40, 30, 0, 40, -75)
	user := posetest.BentRightElbow(40, 30, 0, 40, -75)
	for tt := 10; tt < 20; tt++ {
		user.Frames[tt] = posetest.RotateAbout(user.Frames[tt], pose.RightElbow, posetest.RightForearm, 40)
	}

	res, err := e.Compare(context.Background(), ref, user)
	require.NoError(t, err)

	want := "right elbow: bend (reference 89.9° / you 129.9° / difference 40.0°)"
	for tt := 12; tt <= 17; tt++ {
		require.True(t, res.Report.Flagged(tt), "frame %d should be flagged", tt)
		assert.Equal(t, []string{want}, res.Feedback[tt], "frame %d", tt)
	}
	for _, tt := range []int{0, 1, 30, 39} {
		assert.False(t, res.Report.Flagged(tt), "frame %d should not be flagged", tt)
	}
}

// Roots are centred by preprocessing, so the move half of the final score
// stays at 1 however far the user drifts across the image.
func TestCompare_MoveScoreAfterNormalization(t *testing.T) {
	e := newEngine(t)
	ref := posetest.Sequence(20, 30)
	user := posetest.Sequence(20, 30)
	for tt := range user.Frames {
		user.Frames[tt] = posetest.Transform(user.Frames[tt], 1.5, float64(40*tt), -200)
	}

	res, err := e.Compare(context.Background(), ref, user)
	require.NoError(t, err)
	for _, f := range res.Frames {
		assert.InDelta(t, 1.0, f.MoveScore, 1e-6, "frame %d", f.Index)
	}
}

func TestCompare_Truncates(t *testing.T) {
	e := newEngine(t)

	res, err := e.Compare(context.Background(), posetest.Sequence(45, 30), posetest.Sequence(40, 30))
	require.NoError(t, err)
	assert.Len(t, res.Frames, 40)
	assert.Len(t, res.Scores.FrameScores, 40)
}

func TestCompare_Empty(t *testing.T) {
	e := newEngine(t)

	res, err := e.Compare(context.Background(), pose.Sequence{FPS: 30}, posetest.Sequence(10, 30))
	require.NoError(t, err)
	assert.Empty(t, res.Frames)
	assert.Empty(t, res.Report.Frames)
	assert.Equal(t, 0.0, res.MeanScore())
}

func TestCompare_Cancelled(t *testing.T) {
	e := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	seq := posetest.Sequence(30, 30)
	_, err := e.Compare(ctx, seq, seq)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompareRaw_FormatError(t *testing.T) {
	e := newEngine(t)
	good, err := pose.MarshalRecords(posetest.Sequence(5, 30))
	require.NoError(t, err)

	_, err = e.CompareRaw(context.Background(), []byte("42"), good)
	var fe *pose.FormatError
	require.True(t, errors.As(err, &fe), "expected FormatError, got %v", err)
	assert.Contains(t, err.Error(), "reference")

	_, err = e.CompareRaw(context.Background(), good, []byte(`{"a": {}}`))
	require.True(t, errors.As(err, &fe), "expected FormatError, got %v", err)
	assert.Contains(t, err.Error(), "user")
}

func TestCompareFiles(t *testing.T) {
	dir := t.TempDir()
	refPath := filepath.Join(dir, "ref.json")
	userPath := filepath.Join(dir, "user.json")

	ref, err := pose.MarshalRecords(posetest.Sequence(20, 30))
	require.NoError(t, err)
	user, err := pose.MarshalRecords(posetest.BentRightElbow(20, 30, 5, 15, 30))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(refPath, ref, 0644))
	require.NoError(t, os.WriteFile(userPath, user, 0644))

	res, err := newEngine(t).CompareFiles(context.Background(), refPath, userPath)
	require.NoError(t, err)
	assert.Len(t, res.Frames, 20)
	assert.NotEmpty(t, res.Report.Frames)

	_, err = newEngine(t).CompareFiles(context.Background(), filepath.Join(dir, "missing.json"), userPath)
	assert.Error(t, err)
}

func TestNew_UnknownLocale(t *testing.T) {
	opts := DefaultOptions()
	opts.Locale = "fr"
	_, err := New(opts)
	assert.ErrorIs(t, err, feedback.ErrUnknownLocale)
}

func TestWriteArtifacts(t *testing.T) {
	e := newEngine(t)
	res, err := e.Compare(context.Background(),
		posetest.Sequence(40, 30),
		posetest.BentRightElbow(40, 30, 10, 20, -40))
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	fbPath, scoresPath, err := WriteArtifacts(dir, res)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FeedbackFile), fbPath)
	assert.Equal(t, filepath.Join(dir, ScoresFile), scoresPath)

	raw, err := os.ReadFile(scoresPath)
	require.NoError(t, err)
	var scores map[string][]float64
	require.NoError(t, json.Unmarshal(raw, &scores))
	assert.Len(t, scores["frame_scores"], 40)
	assert.Len(t, scores["second_scores"], 1)

	raw, err = os.ReadFile(fbPath)
	require.NoError(t, err)
	// Degree signs are written as-is, not escaped.
	assert.True(t, strings.Contains(string(raw), "°"))

	fb, err := ReadFeedback(fbPath)
	require.NoError(t, err)
	assert.Equal(t, res.Feedback.Frames(), fb.Frames())

	art, err := ReadScores(scoresPath)
	require.NoError(t, err)
	assert.Equal(t, res.Scores.SecondScores, art.SecondScores)
}

func TestWriteArtifacts_EmptyFeedback(t *testing.T) {
	dir := t.TempDir()
	fbPath, _, err := WriteArtifacts(dir, &Result{})
	require.NoError(t, err)

	raw, err := os.ReadFile(fbPath)
	require.NoError(t, err)
	assert.Equal(t, "{}", strings.TrimSpace(string(raw)))
}
