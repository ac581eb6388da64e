package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultTuning(t *testing.T) {
	cfg := DefaultTuning()

	if cfg.FPS == nil || *cfg.FPS != 30 {
		t.Errorf("Expected FPS 30, got %v", cfg.FPS)
	}
	if cfg.AngleWeight == nil || *cfg.AngleWeight != 0.6 {
		t.Errorf("Expected AngleWeight 0.6, got %v", cfg.AngleWeight)
	}
	if cfg.Locale == nil || *cfg.Locale != "en" {
		t.Errorf("Expected Locale 'en', got %v", cfg.Locale)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestEmptyTuningUsesDefaults(t *testing.T) {
	cfg := &Tuning{}

	if cfg.GetFPS() != 30 {
		t.Errorf("GetFPS() = %d, want 30", cfg.GetFPS())
	}
	if cfg.GetSmoothWindow() != 5 {
		t.Errorf("GetSmoothWindow() = %d, want 5", cfg.GetSmoothWindow())
	}
	if cfg.GetAngleWeight() != 0.6 {
		t.Errorf("GetAngleWeight() = %f, want 0.6", cfg.GetAngleWeight())
	}
	if cfg.GetProcThreshold() != 0.1 {
		t.Errorf("GetProcThreshold() = %f, want 0.1", cfg.GetProcThreshold())
	}
	if cfg.GetAnglePercentile() != 95 {
		t.Errorf("GetAnglePercentile() = %f, want 95", cfg.GetAnglePercentile())
	}
	if cfg.GetMinAngleThresholdDeg() != 1 {
		t.Errorf("GetMinAngleThresholdDeg() = %f, want 1", cfg.GetMinAngleThresholdDeg())
	}
	if cfg.GetReportThresholdDeg() != 10 {
		t.Errorf("GetReportThresholdDeg() = %f, want 10", cfg.GetReportThresholdDeg())
	}
	if cfg.GetLocale() != "en" {
		t.Errorf("GetLocale() = %q, want en", cfg.GetLocale())
	}
	if cfg.GetWorkers() != 0 || cfg.GetDTWWindow() != 0 {
		t.Errorf("expected zero workers and dtw window, got %d and %d", cfg.GetWorkers(), cfg.GetDTWWindow())
	}
	if cfg.GetComparisonTimeout() != 2*time.Minute {
		t.Errorf("GetComparisonTimeout() = %v, want 2m", cfg.GetComparisonTimeout())
	}
}

func TestLoadTuning(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tuning.json")

	testJSON := `{
  "fps": 25,
  "angle_weight": 0.5,
  "locale": "ko",
  "comparison_timeout": "30s"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuning(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetFPS() != 25 {
		t.Errorf("GetFPS() = %d, want 25", cfg.GetFPS())
	}
	if cfg.GetAngleWeight() != 0.5 {
		t.Errorf("GetAngleWeight() = %f, want 0.5", cfg.GetAngleWeight())
	}
	if cfg.GetLocale() != "ko" {
		t.Errorf("GetLocale() = %q, want ko", cfg.GetLocale())
	}
	if cfg.GetComparisonTimeout() != 30*time.Second {
		t.Errorf("GetComparisonTimeout() = %v, want 30s", cfg.GetComparisonTimeout())
	}

	// Omitted fields keep their defaults
	if cfg.GetSmoothWindow() != 5 {
		t.Errorf("GetSmoothWindow() = %d, want 5", cfg.GetSmoothWindow())
	}
}

func TestLoadTuning_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(tmpDir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
		return path
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"wrong extension", write("tuning.yaml", "fps: 30"), ".json extension"},
		{"missing file", filepath.Join(tmpDir, "missing.json"), "failed to stat"},
		{"bad json", write("bad.json", "{"), "failed to parse"},
		{"negative fps", write("fps.json", `{"fps": -1}`), "fps must be positive"},
		{"angle weight out of range", write("weight.json", `{"angle_weight": 1.5}`), "angle_weight"},
		{"unknown locale", write("locale.json", `{"locale": "fr"}`), "locale"},
		{"bad duration", write("timeout.json", `{"comparison_timeout": "soon"}`), "comparison_timeout"},
		{"percentile out of range", write("pct.json", `{"angle_percentile": 101}`), "angle_percentile"},
		{"zero report threshold", write("report.json", `{"report_threshold_deg": 0}`), "report_threshold_deg must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTuning(tt.path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadTuning_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.json")
	big := make([]byte, 1024*1024+1)
	for i := range big {
		big[i] = ' '
	}
	if err := os.WriteFile(path, big, 0644); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	if _, err := LoadTuning(path); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestMustLoadDefaultTuning(t *testing.T) {
	cfg := MustLoadDefaultTuning()

	if cfg.GetFPS() != 30 {
		t.Errorf("GetFPS() = %d, want 30", cfg.GetFPS())
	}
	if cfg.GetReportThresholdDeg() != 10 {
		t.Errorf("GetReportThresholdDeg() = %f, want 10", cfg.GetReportThresholdDeg())
	}
}
