// Package capture reads video frames from files and frame directories using
// GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// DefaultFPS is used when a source does not report its frame rate.
const DefaultFPS = 30

// ErrSourceNotOpen is returned when reading from a source that is not open.
var ErrSourceNotOpen = errors.New("source is not open")

var errNoFrames = errors.New("no frames available")

// Source defines a sequential reader of video frames.
type Source interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame, or io.EOF once every frame was read.
	// The caller is responsible for closing the returned Mat.
	ReadFrame() (*gocv.Mat, error)
	FPS() int
	IsOpen() bool
}

// FrameName returns the file name of frame i in an extracted frame directory.
func FrameName(i int) string {
	return fmt.Sprintf("frame_%06d.jpg", i)
}
