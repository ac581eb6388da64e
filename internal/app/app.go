// Package app ties the comparison engine to persistence, artifacts, keypoint
// extraction and completion notifications.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yujeong-lee-1996/temp-kpop/internal/capture"
	"github.com/yujeong-lee-1996/temp-kpop/internal/compare"
	"github.com/yujeong-lee-1996/temp-kpop/internal/config"
	"github.com/yujeong-lee-1996/temp-kpop/internal/detector"
	"github.com/yujeong-lee-1996/temp-kpop/internal/hook"
	"github.com/yujeong-lee-1996/temp-kpop/internal/pose"
	"github.com/yujeong-lee-1996/temp-kpop/internal/store"
)

// Event types published to subscribers.
const (
	EventCompleted = "comparison.completed"
	EventFailed    = "comparison.failed"
)

// ErrClosed is returned when submitting work to a closed App.
var ErrClosed = errors.New("app is closed")

// Event announces the end of a comparison run.
type Event struct {
	Type          string  `json:"type"`
	ID            string  `json:"id"`
	FinalScore    float64 `json:"final_score"`
	FlaggedFrames int     `json:"flagged_frames"`
	Error         string  `json:"error,omitempty"`
}

// Config holds configuration options for the application.
type Config struct {
	Store  *store.Store
	Tuning *config.Tuning
	// DataDir receives per-run artifacts under comparisons/<id>. Empty
	// disables artifact files.
	DataDir string
	// HookDir holds completion hooks. Empty disables hooks.
	HookDir     string
	HookTimeout time.Duration
}

// Request is one comparison to run. Reference and User hold keypoint JSON.
type Request struct {
	ReferenceName string
	UserName      string
	// FPS overrides the tuned frame rate when positive.
	FPS       int
	Reference []byte
	User      []byte
}

// App is the main application that orchestrates comparison runs.
type App struct {
	config   Config
	engine   *compare.Engine
	timeout  time.Duration
	detector detector.Detector

	mu        sync.RWMutex
	listeners []func(Event)
	closed    bool
	jobs      sync.WaitGroup

	hooks   *hook.Dispatcher
	hookRun sync.WaitGroup
}

// New creates a new App instance with the given configuration.
func New(cfg Config) (*App, error) {
	if cfg.Tuning == nil {
		cfg.Tuning = config.DefaultTuning()
	}

	engine, err := compare.NewFromTuning(cfg.Tuning)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	a := &App{
		config:  cfg,
		engine:  engine,
		timeout: cfg.Tuning.GetComparisonTimeout(),
	}

	// Try MediaPipe first, fall back to mock detector
	if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe pose detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	if cfg.HookDir != "" {
		if err := a.enableHooks(cfg.HookDir, cfg.HookTimeout); err != nil {
			a.detector.Close()
			return nil, err
		}
	}

	return a, nil
}

// enableHooks discovers the hooks in dir and runs them after every event.
func (a *App) enableHooks(dir string, timeout time.Duration) error {
	m := hook.NewManager(dir)
	if err := m.Discover(); err != nil {
		return fmt.Errorf("discover hooks: %w", err)
	}
	log.Printf("Loaded %d hooks from %s", len(m.List()), dir)

	a.hooks = hook.NewDispatcher(m, hook.NewExecutor(timeout))
	a.Subscribe(func(ev Event) {
		a.hookRun.Add(1)
		go func() {
			defer a.hookRun.Done()
			a.hooks.Notify(context.Background(), ev.Type, ev)
		}()
	})
	return nil
}

// Engine returns the comparison engine.
func (a *App) Engine() *compare.Engine {
	return a.engine
}

// Store returns the configured store, which may be nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// SetDetector sets the pose detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the pose detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Subscribe registers fn to be called after every run.
func (a *App) Subscribe(fn func(Event)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

func (a *App) publish(ev Event) {
	a.mu.RLock()
	listeners := append([]func(Event){}, a.listeners...)
	a.mu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// ArtifactDir returns the artifact directory of a run, or "" when artifacts
// are disabled.
func (a *App) ArtifactDir(id string) string {
	if a.config.DataDir == "" {
		return ""
	}
	return filepath.Join(a.config.DataDir, "comparisons", id)
}

// parse loads both keypoint documents. Malformed input fails here, before
// any run is recorded.
func (a *App) parse(req Request) (ref, user pose.Sequence, err error) {
	fps := req.FPS
	if fps <= 0 {
		fps = a.engine.Options().FPS
	}

	ref, err = pose.Load(req.Reference, fps)
	if err != nil {
		return ref, user, fmt.Errorf("reference: %w", err)
	}
	user, err = pose.Load(req.User, fps)
	if err != nil {
		return ref, user, fmt.Errorf("user: %w", err)
	}
	return ref, user, nil
}

func (a *App) create(req Request, fps int) (*store.Comparison, error) {
	c := &store.Comparison{
		ReferenceName: req.ReferenceName,
		UserName:      req.UserName,
		FPS:           fps,
		Locale:        string(a.engine.Options().Locale),
	}
	if a.config.Store == nil {
		c.ID = uuid.New().String()
		c.Status = store.StatusPending
		return c, nil
	}
	if err := a.config.Store.Comparisons().Create(c); err != nil {
		return nil, fmt.Errorf("create comparison: %w", err)
	}
	return c, nil
}

// Compare runs a comparison to completion and returns the stored summary and
// the full result.
func (a *App) Compare(ctx context.Context, req Request) (*store.Comparison, *compare.Result, error) {
	if err := a.begin(); err != nil {
		return nil, nil, err
	}
	defer a.jobs.Done()

	ref, user, err := a.parse(req)
	if err != nil {
		return nil, nil, err
	}

	c, err := a.create(req, ref.FPS)
	if err != nil {
		return nil, nil, err
	}

	res, err := a.run(ctx, c, ref, user)
	if err != nil {
		return c, nil, err
	}
	return c, res, nil
}

// Submit records a pending comparison and runs it in the background. The
// outcome is announced to subscribers.
func (a *App) Submit(req Request) (*store.Comparison, error) {
	ref, user, err := a.parse(req)
	if err != nil {
		return nil, err
	}

	if err := a.begin(); err != nil {
		return nil, err
	}

	c, err := a.create(req, ref.FPS)
	if err != nil {
		a.jobs.Done()
		return nil, err
	}

	pending := *c
	go func() {
		defer a.jobs.Done()
		if _, err := a.run(context.Background(), c, ref, user); err != nil {
			log.Printf("Comparison %s failed: %v", c.ID, err)
		}
	}()

	return &pending, nil
}

// ExtractVideo extracts keypoints and annotated frames from a video into
// outDir using the current detector.
func (a *App) ExtractVideo(ctx context.Context, videoPath, outDir string) (*detector.Extraction, error) {
	if err := a.begin(); err != nil {
		return nil, err
	}
	defer a.jobs.Done()

	det := a.Detector()
	if det == nil {
		return nil, errors.New("no pose detector configured")
	}
	return detector.Extract(ctx, capture.NewVideoFile(videoPath), det, outDir)
}

// Wait blocks until every background run and its hooks have finished.
func (a *App) Wait() {
	a.jobs.Wait()
	a.hookRun.Wait()
}

// Close stops accepting work, waits for in-flight runs and releases the
// detector.
func (a *App) Close() error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	a.jobs.Wait()
	a.hookRun.Wait()

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
			return err
		}
	}
	return nil
}

// begin registers a unit of work that Close waits for. Every event is
// published from inside such a unit, so hook runs are counted before Close
// waits on them.
func (a *App) begin() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	a.jobs.Add(1)
	return nil
}
