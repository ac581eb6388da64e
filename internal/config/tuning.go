// Package config loads the comparison tuning file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Tuning holds the comparison parameters. Every field is optional; the Get*
// methods fall back to built-in defaults for fields that are not set.
type Tuning struct {
	// Input
	FPS          *int `json:"fps,omitempty"`
	SmoothWindow *int `json:"smooth_window,omitempty"`

	// Scoring
	AngleWeight *float64 `json:"angle_weight,omitempty"`
	Workers     *int     `json:"workers,omitempty"` // 0 uses every CPU
	DTWWindow   *int     `json:"dtw_window,omitempty"`

	// Detection
	ProcThreshold        *float64 `json:"proc_threshold,omitempty"`
	AnglePercentile      *float64 `json:"angle_percentile,omitempty"`
	MinAngleThresholdDeg *float64 `json:"min_angle_threshold_deg,omitempty"`

	// Feedback
	ReportThresholdDeg *float64 `json:"report_threshold_deg,omitempty"`
	Locale             *string  `json:"locale,omitempty"`

	// Server
	ComparisonTimeout *string `json:"comparison_timeout,omitempty"` // duration string like "2m"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultTuning returns a Tuning with every field set to its default.
func DefaultTuning() *Tuning {
	return &Tuning{
		FPS:                  ptrInt(30),
		SmoothWindow:         ptrInt(5),
		AngleWeight:          ptrFloat64(0.6),
		Workers:              ptrInt(0),
		DTWWindow:            ptrInt(0),
		ProcThreshold:        ptrFloat64(0.1),
		AnglePercentile:      ptrFloat64(95),
		MinAngleThresholdDeg: ptrFloat64(1),
		ReportThresholdDeg:   ptrFloat64(10),
		Locale:               ptrString("en"),
		ComparisonTimeout:    ptrString("2m"),
	}
}

// LoadTuning loads a Tuning from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func LoadTuning(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Tuning{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultTuning loads DefaultConfigPath from the current directory
// or one of its parents. Panics if the file cannot be loaded; intended for
// test setup.
func MustLoadDefaultTuning() *Tuning {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuning(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *Tuning) Validate() error {
	if c.FPS != nil && *c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", *c.FPS)
	}
	if c.SmoothWindow != nil && *c.SmoothWindow < 1 {
		return fmt.Errorf("smooth_window must be at least 1, got %d", *c.SmoothWindow)
	}
	if c.AngleWeight != nil && (*c.AngleWeight < 0 || *c.AngleWeight > 1) {
		return fmt.Errorf("angle_weight must be between 0 and 1, got %f", *c.AngleWeight)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.DTWWindow != nil && *c.DTWWindow < 0 {
		return fmt.Errorf("dtw_window must be non-negative, got %d", *c.DTWWindow)
	}
	if c.ProcThreshold != nil && *c.ProcThreshold < 0 {
		return fmt.Errorf("proc_threshold must be non-negative, got %f", *c.ProcThreshold)
	}
	if c.AnglePercentile != nil && (*c.AnglePercentile < 0 || *c.AnglePercentile > 100) {
		return fmt.Errorf("angle_percentile must be between 0 and 100, got %f", *c.AnglePercentile)
	}
	if c.MinAngleThresholdDeg != nil && *c.MinAngleThresholdDeg < 0 {
		return fmt.Errorf("min_angle_threshold_deg must be non-negative, got %f", *c.MinAngleThresholdDeg)
	}
	if c.ReportThresholdDeg != nil && *c.ReportThresholdDeg <= 0 {
		return fmt.Errorf("report_threshold_deg must be positive, got %f", *c.ReportThresholdDeg)
	}
	if c.Locale != nil && *c.Locale != "en" && *c.Locale != "ko" {
		return fmt.Errorf("locale must be \"en\" or \"ko\", got %q", *c.Locale)
	}
	if c.ComparisonTimeout != nil && *c.ComparisonTimeout != "" {
		if _, err := time.ParseDuration(*c.ComparisonTimeout); err != nil {
			return fmt.Errorf("invalid comparison_timeout '%s': %w", *c.ComparisonTimeout, err)
		}
	}
	return nil
}

// GetFPS returns the fps value or the default.
func (c *Tuning) GetFPS() int {
	if c.FPS == nil {
		return 30 // default
	}
	return *c.FPS
}

// GetSmoothWindow returns the smooth_window value or the default.
func (c *Tuning) GetSmoothWindow() int {
	if c.SmoothWindow == nil {
		return 5 // default
	}
	return *c.SmoothWindow
}

// GetAngleWeight returns the angle_weight value or the default.
func (c *Tuning) GetAngleWeight() float64 {
	if c.AngleWeight == nil {
		return 0.6 // default
	}
	return *c.AngleWeight
}

// GetWorkers returns the workers value or the default.
func (c *Tuning) GetWorkers() int {
	if c.Workers == nil {
		return 0 // default
	}
	return *c.Workers
}

// GetDTWWindow returns the dtw_window value or the default.
func (c *Tuning) GetDTWWindow() int {
	if c.DTWWindow == nil {
		return 0 // default
	}
	return *c.DTWWindow
}

// GetProcThreshold returns the proc_threshold value or the default.
func (c *Tuning) GetProcThreshold() float64 {
	if c.ProcThreshold == nil {
		return 0.1 // default
	}
	return *c.ProcThreshold
}

// GetAnglePercentile returns the angle_percentile value or the default.
func (c *Tuning) GetAnglePercentile() float64 {
	if c.AnglePercentile == nil {
		return 95 // default
	}
	return *c.AnglePercentile
}

// GetMinAngleThresholdDeg returns the min_angle_threshold_deg value or the default.
func (c *Tuning) GetMinAngleThresholdDeg() float64 {
	if c.MinAngleThresholdDeg == nil {
		return 1 // default
	}
	return *c.MinAngleThresholdDeg
}

// GetReportThresholdDeg returns the report_threshold_deg value or the default.
func (c *Tuning) GetReportThresholdDeg() float64 {
	if c.ReportThresholdDeg == nil {
		return 10 // default
	}
	return *c.ReportThresholdDeg
}

// GetLocale returns the locale value or the default.
func (c *Tuning) GetLocale() string {
	if c.Locale == nil || *c.Locale == "" {
		return "en" // default
	}
	return *c.Locale
}

// GetComparisonTimeout parses and returns the ComparisonTimeout as a time.Duration.
func (c *Tuning) GetComparisonTimeout() time.Duration {
	if c.ComparisonTimeout == nil || *c.ComparisonTimeout == "" {
		return 2 * time.Minute // default
	}
	d, err := time.ParseDuration(*c.ComparisonTimeout)
	if err != nil {
		return 2 * time.Minute // default on parse error
	}
	return d
}
