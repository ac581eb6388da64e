package pose

import "math"

// DefaultFPS is the frame rate assumed for keypoint sequences.
const DefaultFPS = 30

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns p - q.
func (p Point3D) Sub(q Point3D) Point3D {
	return Point3D{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Norm returns the Euclidean length of p.
func (p Point3D) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Midpoint returns the point halfway between p and q.
func Midpoint(p, q Point3D) Point3D {
	return Point3D{X: (p.X + q.X) * 0.5, Y: (p.Y + q.Y) * 0.5, Z: (p.Z + q.Z) * 0.5}
}

// Keypoint is one joint observation. Present is false for joints the detector
// did not report, which keeps them distinguishable from a valid (0,0,0).
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
	Present    bool    `json:"present"`
}

// Point returns the coordinates of the keypoint.
func (k Keypoint) Point() Point3D {
	return Point3D{X: k.X, Y: k.Y, Z: k.Z}
}

// channel returns coordinate c (0=x, 1=y, 2=z).
func (k *Keypoint) channel(c int) float64 {
	switch c {
	case 0:
		return k.X
	case 1:
		return k.Y
	default:
		return k.Z
	}
}

func (k *Keypoint) setChannel(c int, v float64) {
	switch c {
	case 0:
		k.X = v
	case 1:
		k.Y = v
	default:
		k.Z = v
	}
}

// Frame holds every joint observation of one sampled video frame.
type Frame struct {
	Index  int                 `json:"frame"`
	Joints [NumJoints]Keypoint `json:"joints"`
}

// Root returns the mid-hip point used as the body origin.
func (f *Frame) Root() Point3D {
	return Midpoint(f.Joints[LeftHip].Point(), f.Joints[RightHip].Point())
}

// ShoulderMid returns the midpoint between the shoulders.
func (f *Frame) ShoulderMid() Point3D {
	return Midpoint(f.Joints[LeftShoulder].Point(), f.Joints[RightShoulder].Point())
}

// Sequence is an ordered, time-indexed run of frames sampled at FPS.
type Sequence struct {
	FPS    int
	Frames []Frame
}

// Len returns the number of frames.
func (s Sequence) Len() int {
	return len(s.Frames)
}

// Clone returns a deep copy of the sequence.
func (s Sequence) Clone() Sequence {
	frames := make([]Frame, len(s.Frames))
	copy(frames, s.Frames)
	return Sequence{FPS: s.FPS, Frames: frames}
}

// Truncate returns the first n frames. It never extends the sequence.
func (s Sequence) Truncate(n int) Sequence {
	if n >= len(s.Frames) {
		return s
	}
	if n < 0 {
		n = 0
	}
	return Sequence{FPS: s.FPS, Frames: s.Frames[:n]}
}

// CommonLength returns min(a.Len(), b.Len()).
func CommonLength(a, b Sequence) int {
	return min(a.Len(), b.Len())
}
