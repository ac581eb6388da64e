package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yujeong-lee-1996/temp-kpop/internal/compare"
	"github.com/yujeong-lee-1996/temp-kpop/internal/feedback"
	"github.com/yujeong-lee-1996/temp-kpop/internal/similarity"
)

// newTestStore creates a new Store backed by a temporary database file.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func newTestComparison(t *testing.T, repo *ComparisonRepository) *Comparison {
	t.Helper()
	c := &Comparison{ReferenceName: "idol.json", UserName: "trainee.json", FPS: 30}
	if err := repo.Create(c); err != nil {
		t.Fatalf("failed to create comparison: %v", err)
	}
	return c
}

// sampleResult builds a four-frame result with frames 1 and 2 flagged and
// frame 2 carrying no message.
func sampleResult() *compare.Result {
	frames := []similarity.FrameSimilarity{
		{Index: 0, PoseScore: 1, MoveScore: 1, FinalScore: 1, ShapeResidual: 0},
		{Index: 1, PoseScore: 0.8, MoveScore: 0.6, FinalScore: 0.7, ShapeResidual: 0.05},
		{Index: 2, PoseScore: 0.9, MoveScore: 0.5, FinalScore: 0.7, ShapeResidual: 0.2},
		{Index: 3, PoseScore: 1, MoveScore: 0.8, FinalScore: 0.9, ShapeResidual: 0},
	}
	return &compare.Result{
		FPS:    2,
		Frames: frames,
		Stats:  similarity.Statistics{MaxRootDistance: 3.5, AngleThreshold: 0.1},
		Report: &similarity.Report{
			Frames: []int{1, 2},
			Reasons: map[int][]similarity.Reason{
				1: {similarity.AngleReason(1)},
				2: {similarity.ShapeMisaligned},
			},
		},
		Feedback: feedback.Map{
			1: {"right elbow: straighten (reference 164.9° / you 124.9° / difference 40.0°)", "second"},
			2: {},
		},
		Scores:             similarity.NewScoreArtifact(frames, 2),
		TrajectoryDistance: 0.25,
	}
}

func TestComparisonRepository_Create(t *testing.T) {
	s := newTestStore(t)
	repo := s.Comparisons()

	c := newTestComparison(t, repo)
	if c.ID == "" {
		t.Fatal("Create should assign an ID")
	}
	if c.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set after create")
	}

	got, err := repo.GetByID(c.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("expected status %q, got %q", StatusPending, got.Status)
	}
	if got.ReferenceName != "idol.json" || got.UserName != "trainee.json" || got.FPS != 30 {
		t.Errorf("unexpected comparison %+v", got)
	}
	if got.Locale != string(feedback.DefaultLocale) {
		t.Errorf("expected default locale, got %q", got.Locale)
	}
	if got.CompletedAt != nil {
		t.Error("pending comparison should have no completion time")
	}
}

func TestComparisonRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Comparisons().GetByID("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestComparisonRepository_SaveResult(t *testing.T) {
	s := newTestStore(t)
	repo := s.Comparisons()
	c := newTestComparison(t, repo)
	res := sampleResult()

	if err := repo.SaveResult(c.ID, res); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}

	got, err := repo.GetByID(c.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("expected status %q, got %q", StatusCompleted, got.Status)
	}
	if got.FrameCount != 4 || got.FlaggedCount != 2 || got.FPS != 2 {
		t.Errorf("unexpected summary %+v", got)
	}
	if got.MeanScore != res.MeanScore() {
		t.Errorf("expected mean score %f, got %f", res.MeanScore(), got.MeanScore)
	}
	if got.CompletedAt == nil {
		t.Error("completed comparison should have a completion time")
	}

	scores, err := repo.GetScores(c.ID)
	if err != nil {
		t.Fatalf("GetScores() error = %v", err)
	}
	if diff := cmp.Diff(res.Scores, scores); diff != "" {
		t.Errorf("scores mismatch (-want +got):\n%s", diff)
	}

	fb, err := repo.GetFeedback(c.ID)
	if err != nil {
		t.Fatalf("GetFeedback() error = %v", err)
	}
	if diff := cmp.Diff(res.Feedback, fb); diff != "" {
		t.Errorf("feedback mismatch (-want +got):\n%s", diff)
	}
}

func TestComparisonRepository_SaveResultReplaces(t *testing.T) {
	s := newTestStore(t)
	repo := s.Comparisons()
	c := newTestComparison(t, repo)

	if err := repo.SaveResult(c.ID, sampleResult()); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}

	second := sampleResult()
	second.Frames = second.Frames[:2]
	second.Scores = similarity.NewScoreArtifact(second.Frames, 2)
	second.Report = &similarity.Report{Frames: []int{}, Reasons: map[int][]similarity.Reason{}}
	second.Feedback = feedback.Map{}
	if err := repo.SaveResult(c.ID, second); err != nil {
		t.Fatalf("second SaveResult() error = %v", err)
	}

	scores, err := repo.GetScores(c.ID)
	if err != nil {
		t.Fatalf("GetScores() error = %v", err)
	}
	if len(scores.FrameScores) != 2 {
		t.Errorf("expected 2 frame scores after replace, got %d", len(scores.FrameScores))
	}

	fb, err := repo.GetFeedback(c.ID)
	if err != nil {
		t.Fatalf("GetFeedback() error = %v", err)
	}
	if len(fb) != 0 {
		t.Errorf("expected no feedback after replace, got %v", fb)
	}
}

func TestComparisonRepository_SaveResult_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.Comparisons().SaveResult("missing", sampleResult())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM frame_scores").Scan(&count); err != nil {
		t.Fatalf("count frame scores: %v", err)
	}
	if count != 0 {
		t.Errorf("failed save should leave no rows, got %d", count)
	}
}

func TestComparisonRepository_MarkFailed(t *testing.T) {
	s := newTestStore(t)
	repo := s.Comparisons()
	c := newTestComparison(t, repo)

	if err := repo.MarkFailed(c.ID, "keypoint format: empty input"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}

	got, err := repo.GetByID(c.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != StatusFailed || got.Error != "keypoint format: empty input" {
		t.Errorf("unexpected failed comparison %+v", got)
	}

	if err := repo.MarkFailed("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestComparisonRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Comparisons()

	list, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list, got %d", len(list))
	}

	for i := 0; i < 3; i++ {
		newTestComparison(t, repo)
	}

	list, err = repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 {
		t.Errorf("expected 3 comparisons, got %d", len(list))
	}
}

func TestComparisonRepository_DeleteCascades(t *testing.T) {
	s := newTestStore(t)
	repo := s.Comparisons()
	c := newTestComparison(t, repo)

	if err := repo.SaveResult(c.ID, sampleResult()); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	if err := repo.Delete(c.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := repo.GetByID(c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := repo.GetScores(c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for scores after delete, got %v", err)
	}

	for _, table := range []string{"frame_scores", "second_scores", "feedback_messages"} {
		var count int
		if err := s.DB().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if count != 0 {
			t.Errorf("expected %s to be empty after cascade, got %d rows", table, count)
		}
	}

	if err := repo.Delete(c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
