package compare

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yujeong-lee-1996/temp-kpop/internal/feedback"
	"github.com/yujeong-lee-1996/temp-kpop/internal/similarity"
)

// Artifact file names written by WriteArtifacts.
const (
	FeedbackFile = "feedback.json"
	ScoresFile   = "scores.json"
)

// WriteArtifacts writes feedback.json and scores.json for a result into dir,
// creating dir if needed.
func WriteArtifacts(dir string, r *Result) (feedbackPath, scoresPath string, err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("create artifact dir: %w", err)
	}

	feedbackPath = filepath.Join(dir, FeedbackFile)
	fb := r.Feedback
	if fb == nil {
		fb = feedback.Map{}
	}
	if err := writeJSONFile(feedbackPath, fb); err != nil {
		return "", "", err
	}

	scoresPath = filepath.Join(dir, ScoresFile)
	if err := writeJSONFile(scoresPath, r.Scores); err != nil {
		return "", "", err
	}

	return feedbackPath, scoresPath, nil
}

// ReadScores reads a scores.json artifact.
func ReadScores(path string) (similarity.ScoreArtifact, error) {
	var art similarity.ScoreArtifact
	data, err := os.ReadFile(path)
	if err != nil {
		return art, fmt.Errorf("read scores: %w", err)
	}
	if err := json.Unmarshal(data, &art); err != nil {
		return art, fmt.Errorf("parse scores: %w", err)
	}
	return art, nil
}

// ReadFeedback reads a feedback.json artifact.
func ReadFeedback(path string) (feedback.Map, error) {
	var fb feedback.Map
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feedback: %w", err)
	}
	if err := json.Unmarshal(data, &fb); err != nil {
		return nil, fmt.Errorf("parse feedback: %w", err)
	}
	return fb, nil
}

// writeJSONFile writes v as indented UTF-8 JSON without HTML escaping.
func writeJSONFile(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
