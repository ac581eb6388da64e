package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/yujeong-lee-1996/temp-kpop/internal/pose"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	poses []*Landmarks
	calls int
	err   error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetPoses sets the landmarks returned by successive Detect calls. After the
// last one, the final entry repeats. A nil entry means no person detected.
func (m *MockDetector) SetPoses(poses ...*Landmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poses = poses
	m.calls = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the number of Detect calls so far.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured landmarks or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Landmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if len(m.poses) == 0 {
		m.calls++
		return nil, nil
	}

	i := min(m.calls, len(m.poses)-1)
	m.calls++
	return m.poses[i], nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// StandingLandmarks returns a preset upright pose with arms slightly bent,
// normalized to a 640x640 image.
func StandingLandmarks() *Landmarks {
	lm := &Landmarks{Score: 0.95}
	for j, xy := range standing {
		lm.Points[j] = Landmark{X: xy[0] / 640, Y: xy[1] / 640, Visibility: 0.99}
	}
	return lm
}

// standing holds pixel positions on a 640x640 image in catalog order.
var standing = [pose.NumJoints][2]float64{
	{320, 100},
	{312, 92}, {308, 92}, {304, 92},
	{328, 92}, {332, 92}, {336, 92},
	{298, 98}, {342, 98},
	{314, 112}, {326, 112},
	{360, 160}, {280, 160},
	{390, 230}, {250, 230},
	{400, 300}, {240, 300},
	{405, 320}, {235, 320},
	{402, 325}, {238, 325},
	{395, 315}, {245, 315},
	{345, 320}, {295, 320},
	{350, 420}, {290, 420},
	{352, 520}, {288, 520},
	{355, 535}, {285, 535},
	{370, 540}, {270, 540},
}
