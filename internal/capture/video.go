package capture

import (
	"fmt"
	"io"
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// VideoFile reads frames from a video file.
type VideoFile struct {
	path    string
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     int
	frames  int
}

// NewVideoFile creates a source for the video at path. Nothing is opened
// until Open.
func NewVideoFile(path string) *VideoFile {
	return &VideoFile{
		path: path,
		fps:  DefaultFPS,
	}
}

// Open opens the video and reads its frame rate and frame count.
func (v *VideoFile) Open() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(v.path)
	if err != nil {
		return fmt.Errorf("open video %s: %w", v.path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open video %s: not a readable video", v.path)
	}

	if fps := capture.Get(gocv.VideoCaptureFPS); fps > 0 && !math.IsNaN(fps) {
		v.fps = int(math.Round(fps))
	}
	v.frames = int(capture.Get(gocv.VideoCaptureFrameCount))

	v.capture = capture
	v.running = true

	return nil
}

// Close closes the video and releases resources.
func (v *VideoFile) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running || v.capture == nil {
		v.running = false
		return nil
	}

	err := v.capture.Close()
	v.capture = nil
	v.running = false

	return err
}

// ReadFrame reads the next frame of the video.
// The caller is responsible for closing the returned Mat.
func (v *VideoFile) ReadFrame() (*gocv.Mat, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running || v.capture == nil {
		return nil, ErrSourceNotOpen
	}

	mat := gocv.NewMat()
	if ok := v.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, io.EOF
	}

	return &mat, nil
}

// FPS returns the video frame rate, or DefaultFPS if it is unknown.
func (v *VideoFile) FPS() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.fps
}

// FrameCount returns the frame count reported by the container. It is an
// estimate for some codecs and zero before Open.
func (v *VideoFile) FrameCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.frames
}

// IsOpen returns true if the video is open.
func (v *VideoFile) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.running
}

var _ Source = (*VideoFile)(nil)
