package capture

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"
)

// FrameDir reads frame_%06d.jpg images from a directory, as written by
// keypoint extraction.
type FrameDir struct {
	dir     string
	fps     int
	mu      sync.Mutex
	running bool
	index   int
	count   int
}

// NewFrameDir creates a source over dir played back at fps.
func NewFrameDir(dir string, fps int) *FrameDir {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &FrameDir{dir: dir, fps: fps}
}

// Open counts the contiguous frames starting at frame 0.
func (d *FrameDir) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	info, err := os.Stat(d.dir)
	if err != nil {
		return fmt.Errorf("open frame dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("open frame dir: %s is not a directory", d.dir)
	}

	count := 0
	for {
		if _, err := os.Stat(filepath.Join(d.dir, FrameName(count))); err != nil {
			break
		}
		count++
	}

	d.count = count
	d.index = 0
	d.running = true
	return nil
}

// Close stops playback.
func (d *FrameDir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	return nil
}

// ReadFrame reads the next frame image.
func (d *FrameDir) ReadFrame() (*gocv.Mat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil, ErrSourceNotOpen
	}
	if d.index >= d.count {
		return nil, io.EOF
	}

	mat, err := d.readAt(d.index)
	if err != nil {
		return nil, err
	}
	d.index++
	return mat, nil
}

// ReadFrameAt reads frame i without moving the playback position.
func (d *FrameDir) ReadFrameAt(i int) (*gocv.Mat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil, ErrSourceNotOpen
	}
	if i < 0 || i >= d.count {
		return nil, io.EOF
	}
	return d.readAt(i)
}

func (d *FrameDir) readAt(i int) (*gocv.Mat, error) {
	path := filepath.Join(d.dir, FrameName(i))
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("read frame %s: empty image", path)
	}
	return &mat, nil
}

// Len returns the number of frames found by Open.
func (d *FrameDir) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// FPS returns the playback frame rate.
func (d *FrameDir) FPS() int { return d.fps }

// IsOpen returns true if the directory is open.
func (d *FrameDir) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

var _ Source = (*FrameDir)(nil)
