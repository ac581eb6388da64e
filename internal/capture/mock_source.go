package capture

import (
	"io"
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back in-memory frames for testing.
type MockSource struct {
	frames  []*gocv.Mat
	index   int
	fps     int
	mu      sync.Mutex
	running bool
}

// NewMockSource creates a source over frames at the given fps.
func NewMockSource(frames []*gocv.Mat, fps int) *MockSource {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &MockSource{
		frames: frames,
		fps:    fps,
	}
}

func (c *MockSource) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	return nil
}

func (c *MockSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *MockSource) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrSourceNotOpen
	}
	if len(c.frames) == 0 {
		return nil, errNoFrames
	}
	if c.index >= len(c.frames) {
		return nil, io.EOF
	}

	// Clone the frame so the original isn't modified
	frame := c.frames[c.index].Clone()
	c.index++

	return &frame, nil
}

func (c *MockSource) FPS() int { return c.fps }

func (c *MockSource) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Reset restarts playback from the beginning
func (c *MockSource) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = 0
}
