package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for body pose detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the landmarks of the most
	// confident person. Returns nil if no person is detected.
	Detect(frame *gocv.Mat) (*Landmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// ModelComplexity selects the pose model size (0, 1 or 2).
	ModelComplexity int

	// ScriptPath overrides the pose service script location.
	ScriptPath string

	// IdleTimeout stops the service after this long without a request.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.5,
		ModelComplexity: 1,
		IdleTimeout:     30 * time.Second,
	}
}
