package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yujeong-lee-1996/temp-kpop/internal/app"
	"github.com/yujeong-lee-1996/temp-kpop/internal/compare"
	"github.com/yujeong-lee-1996/temp-kpop/internal/pose"
	"github.com/yujeong-lee-1996/temp-kpop/internal/pose/posetest"
	"github.com/yujeong-lee-1996/temp-kpop/internal/store"
)

// newTestApp creates an App with a temporary database and data dir.
func newTestApp(t *testing.T) (*app.App, *store.Store) {
	t.Helper()
	compare.SetLogger(nil)

	tmpDir, err := os.MkdirTemp("", "posecoach-api-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	s, err := store.New(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	a, err := app.New(app.Config{Store: s, DataDir: filepath.Join(tmpDir, "data")})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	t.Cleanup(func() {
		a.Close()
	})

	return a, s
}

func keypoints(t *testing.T, seq pose.Sequence) json.RawMessage {
	t.Helper()
	raw, err := pose.MarshalRecords(seq)
	if err != nil {
		t.Fatalf("failed to marshal keypoints: %v", err)
	}
	return raw
}

func bentRequest(t *testing.T) createComparisonRequest {
	return createComparisonRequest{
		ReferenceName: "idol",
		UserName:      "trainee",
		Reference:     keypoints(t, posetest.Sequence(40, 30)),
		User:          keypoints(t, posetest.BentRightElbow(40, 30, 10, 20, -40)),
	}
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// createComparison posts the bent elbow request and returns its id.
func createComparison(t *testing.T, h http.Handler) string {
	t.Helper()

	rec := do(t, h, http.MethodPost, "/api/comparisons", bentRequest(t))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var resp createComparisonResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp.Comparison.ID
}

func TestComparisonHandler_Create(t *testing.T) {
	a, _ := newTestApp(t)
	handler := NewComparisonHandler(a)

	rec := do(t, handler, http.MethodPost, "/api/comparisons", bentRequest(t))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var resp createComparisonResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Comparison.ID == "" {
		t.Error("expected comparison ID to be set")
	}
	if resp.Comparison.Status != string(store.StatusCompleted) {
		t.Errorf("expected status completed, got %q", resp.Comparison.Status)
	}
	if resp.Comparison.ReferenceName != "idol" || resp.Comparison.UserName != "trainee" {
		t.Errorf("unexpected names %q / %q", resp.Comparison.ReferenceName, resp.Comparison.UserName)
	}
	if len(resp.Scores.FrameScores) != 40 {
		t.Errorf("expected 40 frame scores, got %d", len(resp.Scores.FrameScores))
	}
	if len(resp.BadFrames) == 0 {
		t.Fatal("expected flagged frames")
	}
	for _, f := range resp.BadFrames {
		if _, ok := resp.Feedback[f]; !ok {
			t.Errorf("flagged frame %d has no feedback entry", f)
		}
		if len(resp.Reasons[f]) == 0 {
			t.Errorf("flagged frame %d has no reasons", f)
		}
	}
}

func TestComparisonHandler_CreateAsync(t *testing.T) {
	a, s := newTestApp(t)
	handler := NewComparisonHandler(a)

	body := bentRequest(t)
	body.Async = true
	rec := do(t, handler, http.MethodPost, "/api/comparisons", body)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d: %s", http.StatusAccepted, rec.Code, rec.Body.String())
	}

	var resp comparisonResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != string(store.StatusPending) {
		t.Errorf("expected pending status, got %q", resp.Status)
	}

	a.Wait()

	c, err := s.Comparisons().GetByID(resp.ID)
	if err != nil {
		t.Fatalf("failed to get comparison: %v", err)
	}
	if c.Status != store.StatusCompleted {
		t.Errorf("expected completed status, got %q", c.Status)
	}
}

func TestComparisonHandler_CreateBadRequest(t *testing.T) {
	a, s := newTestApp(t)
	handler := NewComparisonHandler(a)

	ref := keypoints(t, posetest.Sequence(10, 30))

	tests := []struct {
		name string
		body interface{}
	}{
		{"invalid json", "{not json"},
		{"number keypoints", createComparisonRequest{Reference: ref, User: json.RawMessage(`42`)}},
		{"missing user", createComparisonRequest{Reference: ref}},
		{"non-numeric key", createComparisonRequest{Reference: ref, User: json.RawMessage(`{"a": {}}`)}},
		{"negative fps", createComparisonRequest{FPS: -1, Reference: ref, User: ref}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, handler, http.MethodPost, "/api/comparisons", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d: %s", http.StatusBadRequest, rec.Code, rec.Body.String())
			}

			var resp errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Error == "" {
				t.Error("expected error message in response")
			}
		})
	}

	list, err := s.Comparisons().List()
	if err != nil {
		t.Fatalf("failed to list comparisons: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("bad requests should not record runs, got %d", len(list))
	}
}

func TestComparisonHandler_List(t *testing.T) {
	a, _ := newTestApp(t)
	handler := NewComparisonHandler(a)

	first := createComparison(t, handler)
	second := createComparison(t, handler)

	rec := do(t, handler, http.MethodGet, "/api/comparisons", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp listComparisonsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Comparisons) != 2 {
		t.Fatalf("expected 2 comparisons, got %d", len(resp.Comparisons))
	}
	ids := map[string]bool{resp.Comparisons[0].ID: true, resp.Comparisons[1].ID: true}
	if !ids[first] || !ids[second] {
		t.Errorf("expected both comparisons in %v", ids)
	}
}

func TestComparisonHandler_Get(t *testing.T) {
	a, _ := newTestApp(t)
	handler := NewComparisonHandler(a)
	id := createComparison(t, handler)

	t.Run("existing comparison", func(t *testing.T) {
		rec := do(t, handler, http.MethodGet, "/api/comparisons/"+id, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var resp comparisonResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.ID != id || resp.FrameCount != 40 || resp.FlaggedCount == 0 {
			t.Errorf("unexpected comparison %+v", resp)
		}
		if resp.CreatedAt == "" || resp.CompletedAt == "" {
			t.Error("expected created_at and completed_at")
		}
	})

	t.Run("missing comparison", func(t *testing.T) {
		for _, path := range []string{
			"/api/comparisons/missing",
			"/api/comparisons/missing/scores",
			"/api/comparisons/missing/feedback",
			"/api/comparisons/missing/chart",
		} {
			rec := do(t, handler, http.MethodGet, path, nil)
			if rec.Code != http.StatusNotFound {
				t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
			}
		}
	})
}

func TestComparisonHandler_ScoresAndFeedback(t *testing.T) {
	a, _ := newTestApp(t)
	handler := NewComparisonHandler(a)
	id := createComparison(t, handler)

	rec := do(t, handler, http.MethodGet, "/api/comparisons/"+id+"/scores", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var scores struct {
		FrameScores  []float64 `json:"frame_scores"`
		SecondScores []float64 `json:"second_scores"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&scores); err != nil {
		t.Fatalf("failed to decode scores: %v", err)
	}
	if len(scores.FrameScores) != 40 || len(scores.SecondScores) != 1 {
		t.Errorf("expected 40 frame and 1 second scores, got %d and %d", len(scores.FrameScores), len(scores.SecondScores))
	}

	rec = do(t, handler, http.MethodGet, "/api/comparisons/"+id+"/feedback", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var fb map[string][]string
	if err := json.NewDecoder(rec.Body).Decode(&fb); err != nil {
		t.Fatalf("failed to decode feedback: %v", err)
	}
	if len(fb) == 0 {
		t.Fatal("expected feedback entries")
	}
	for frame, msgs := range fb {
		for _, m := range msgs {
			if !strings.HasPrefix(m, "right elbow") {
				t.Errorf("frame %s: unexpected message %q", frame, m)
			}
		}
	}
}

func TestComparisonHandler_Chart(t *testing.T) {
	a, _ := newTestApp(t)
	handler := NewComparisonHandler(a)
	id := createComparison(t, handler)

	t.Run("html", func(t *testing.T) {
		rec := do(t, handler, http.MethodGet, "/api/comparisons/"+id+"/chart", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("expected html content type, got %s", ct)
		}
		if !strings.Contains(rec.Body.String(), "idol vs trainee") {
			t.Error("expected chart title in page")
		}
	})

	t.Run("png", func(t *testing.T) {
		rec := do(t, handler, http.MethodGet, "/api/comparisons/"+id+"/chart?format=png", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
			t.Error("expected PNG data")
		}
	})
}

func TestComparisonHandler_Delete(t *testing.T) {
	a, _ := newTestApp(t)
	handler := NewComparisonHandler(a)
	id := createComparison(t, handler)

	dir := a.ArtifactDir(id)
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected artifact dir before delete: %v", err)
	}

	rec := do(t, handler, http.MethodDelete, "/api/comparisons/"+id, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("expected artifact dir removed, got %v", err)
	}

	rec = do(t, handler, http.MethodDelete, "/api/comparisons/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d on second delete, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestComparisonHandler_MethodNotAllowed(t *testing.T) {
	a, _ := newTestApp(t)
	handler := NewComparisonHandler(a)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPut, "/api/comparisons"},
		{http.MethodPatch, "/api/comparisons/some-id"},
		{http.MethodPost, "/api/comparisons/some-id/scores"},
	}

	for _, tt := range tests {
		rec := do(t, handler, tt.method, tt.path, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}

func TestComparisonHandler_WithoutStore(t *testing.T) {
	a, err := app.New(app.Config{})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	defer a.Close()
	handler := NewComparisonHandler(a)

	rec := do(t, handler, http.MethodGet, "/api/comparisons", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}

	// Runs still complete without persistence.
	rec = do(t, handler, http.MethodPost, "/api/comparisons", bentRequest(t))
	if rec.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
}
