// Package api provides HTTP API handlers for the pose comparison service.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yujeong-lee-1996/temp-kpop/internal/app"
	"github.com/yujeong-lee-1996/temp-kpop/internal/feedback"
	"github.com/yujeong-lee-1996/temp-kpop/internal/pose"
	"github.com/yujeong-lee-1996/temp-kpop/internal/report"
	"github.com/yujeong-lee-1996/temp-kpop/internal/similarity"
	"github.com/yujeong-lee-1996/temp-kpop/internal/store"
)

// ComparisonHandler handles HTTP requests for comparison resources.
type ComparisonHandler struct {
	app *app.App
}

// NewComparisonHandler creates a new ComparisonHandler backed by the given app.
func NewComparisonHandler(a *app.App) *ComparisonHandler {
	return &ComparisonHandler{app: a}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *ComparisonHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/comparisons, /api/comparisons/{id}
	// and /api/comparisons/{id}/{scores|feedback|chart}
	path := strings.TrimPrefix(r.URL.Path, "/api/comparisons")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "scores", "feedback", "chart":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		switch sub {
		case "scores":
			h.getScores(w, r, id)
		case "feedback":
			h.getFeedback(w, r, id)
		default:
			h.chart(w, r, id)
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Request and response types

type createComparisonRequest struct {
	ReferenceName string          `json:"reference_name"`
	UserName      string          `json:"user_name"`
	FPS           int             `json:"fps"`
	Async         bool            `json:"async"`
	Reference     json.RawMessage `json:"reference"`
	User          json.RawMessage `json:"user"`
}

type comparisonResponse struct {
	ID                 string  `json:"id"`
	ReferenceName      string  `json:"reference_name"`
	UserName           string  `json:"user_name"`
	FPS                int     `json:"fps"`
	Locale             string  `json:"locale"`
	Status             string  `json:"status"`
	Error              string  `json:"error,omitempty"`
	FrameCount         int     `json:"frame_count"`
	FlaggedCount       int     `json:"flagged_count"`
	MeanScore          float64 `json:"mean_score"`
	MaxRootDistance    float64 `json:"max_root_distance"`
	AngleThreshold     float64 `json:"angle_threshold"`
	TrajectoryDistance float64 `json:"trajectory_distance"`
	CreatedAt          string  `json:"created_at,omitempty"`
	CompletedAt        string  `json:"completed_at,omitempty"`
}

type createComparisonResponse struct {
	Comparison comparisonResponse          `json:"comparison"`
	Scores     similarity.ScoreArtifact    `json:"scores"`
	Feedback   feedback.Map                `json:"feedback"`
	BadFrames  []int                       `json:"bad_frames"`
	Reasons    map[int][]similarity.Reason `json:"reasons"`
}

type listComparisonsResponse struct {
	Comparisons []comparisonResponse `json:"comparisons"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toResponse converts a store.Comparison to a comparisonResponse.
func toResponse(c *store.Comparison) comparisonResponse {
	resp := comparisonResponse{
		ID:                 c.ID,
		ReferenceName:      c.ReferenceName,
		UserName:           c.UserName,
		FPS:                c.FPS,
		Locale:             c.Locale,
		Status:             string(c.Status),
		Error:              c.Error,
		FrameCount:         c.FrameCount,
		FlaggedCount:       c.FlaggedCount,
		MeanScore:          c.MeanScore,
		MaxRootDistance:    c.MaxRootDistance,
		AngleThreshold:     c.AngleThreshold,
		TrajectoryDistance: c.TrajectoryDistance,
	}
	if !c.CreatedAt.IsZero() {
		resp.CreatedAt = c.CreatedAt.Format(time.RFC3339)
	}
	if c.CompletedAt != nil {
		resp.CompletedAt = c.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// inputError reports whether err was caused by the submitted keypoints.
func inputError(err error) bool {
	var fe *pose.FormatError
	var se *pose.ShapeError
	return errors.As(err, &fe) || errors.As(err, &se)
}

// repo returns the comparison repository, writing 503 when persistence is off.
func (h *ComparisonHandler) repo(w http.ResponseWriter) *store.ComparisonRepository {
	s := h.app.Store()
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, "Persistence is disabled")
		return nil
	}
	return s.Comparisons()
}

// writeLookupError maps a repository error on id lookups.
func writeLookupError(w http.ResponseWriter, err error, action string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Comparison not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to "+action)
}

// create handles POST /api/comparisons. The run completes within the request
// unless async is set, in which case 202 is returned with the pending run.
func (h *ComparisonHandler) create(w http.ResponseWriter, r *http.Request) {
	var body createComparisonRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if body.FPS < 0 {
		writeError(w, http.StatusBadRequest, "fps must not be negative")
		return
	}

	req := app.Request{
		ReferenceName: body.ReferenceName,
		UserName:      body.UserName,
		FPS:           body.FPS,
		Reference:     body.Reference,
		User:          body.User,
	}

	if body.Async {
		c, err := h.app.Submit(req)
		if err != nil {
			h.writeRunError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, toResponse(c))
		return
	}

	c, res, err := h.app.Compare(r.Context(), req)
	if err != nil {
		h.writeRunError(w, err)
		return
	}

	fb := res.Feedback
	if fb == nil {
		fb = feedback.Map{}
	}
	writeJSON(w, http.StatusCreated, createComparisonResponse{
		Comparison: toResponse(c),
		Scores:     res.Scores,
		Feedback:   fb,
		BadFrames:  res.Report.Frames,
		Reasons:    res.Report.Reasons,
	})
}

func (h *ComparisonHandler) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case inputError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "Service is shutting down")
	default:
		log.Printf("Comparison failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Comparison failed")
	}
}

// list handles GET /api/comparisons and returns every run, newest first.
func (h *ComparisonHandler) list(w http.ResponseWriter, r *http.Request) {
	repo := h.repo(w)
	if repo == nil {
		return
	}

	comparisons, err := repo.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list comparisons")
		return
	}

	response := listComparisonsResponse{
		Comparisons: make([]comparisonResponse, 0, len(comparisons)),
	}
	for _, c := range comparisons {
		response.Comparisons = append(response.Comparisons, toResponse(c))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/comparisons/{id}.
func (h *ComparisonHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	repo := h.repo(w)
	if repo == nil {
		return
	}

	c, err := repo.GetByID(id)
	if err != nil {
		writeLookupError(w, err, "get comparison")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(c))
}

// delete handles DELETE /api/comparisons/{id} and removes the run with its
// artifacts.
func (h *ComparisonHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	repo := h.repo(w)
	if repo == nil {
		return
	}

	if err := repo.Delete(id); err != nil {
		writeLookupError(w, err, "delete comparison")
		return
	}

	if dir := h.app.ArtifactDir(id); dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("Error removing artifacts for %s: %v", id, err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// getScores handles GET /api/comparisons/{id}/scores.
func (h *ComparisonHandler) getScores(w http.ResponseWriter, r *http.Request, id string) {
	repo := h.repo(w)
	if repo == nil {
		return
	}

	if _, err := repo.GetByID(id); err != nil {
		writeLookupError(w, err, "get comparison")
		return
	}
	art, err := repo.GetScores(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get scores")
		return
	}

	writeJSON(w, http.StatusOK, art)
}

// getFeedback handles GET /api/comparisons/{id}/feedback.
func (h *ComparisonHandler) getFeedback(w http.ResponseWriter, r *http.Request, id string) {
	repo := h.repo(w)
	if repo == nil {
		return
	}

	if _, err := repo.GetByID(id); err != nil {
		writeLookupError(w, err, "get comparison")
		return
	}
	fb, err := repo.GetFeedback(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get feedback")
		return
	}

	writeJSON(w, http.StatusOK, fb)
}

// chart handles GET /api/comparisons/{id}/chart. The default is an
// interactive HTML page; ?format=png returns a static image.
func (h *ComparisonHandler) chart(w http.ResponseWriter, r *http.Request, id string) {
	repo := h.repo(w)
	if repo == nil {
		return
	}

	c, err := repo.GetByID(id)
	if err != nil {
		writeLookupError(w, err, "get comparison")
		return
	}
	art, err := repo.GetScores(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get scores")
		return
	}
	if len(art.FrameScores) == 0 {
		writeError(w, http.StatusConflict, "Comparison has no scores")
		return
	}

	title := c.ReferenceName + " vs " + c.UserName

	if r.URL.Query().Get("format") == "png" {
		w.Header().Set("Content-Type", "image/png")
		if err := report.WriteScoreChartPNG(w, title, art, c.FPS); err != nil {
			log.Printf("Error rendering chart for %s: %v", id, err)
		}
		return
	}

	fb, err := repo.GetFeedback(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get feedback")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.WriteScoreChartHTML(w, title, art, c.FPS, fb.Frames()); err != nil {
		log.Printf("Error rendering chart for %s: %v", id, err)
	}
}
