// Package detector provides body pose detection and keypoint extraction
// from video.
package detector

import (
	"github.com/yujeong-lee-1996/temp-kpop/internal/pose"
)

// Landmark is one detected joint. X and Y are normalized to [0,1] of the
// image width and height; Z is the detector's relative depth.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Landmarks holds the 33 body landmarks of one person in catalog order.
type Landmarks struct {
	Points [pose.NumJoints]Landmark `json:"points"`
	Score  float64                  `json:"score"`
}

// Frame converts normalized landmarks to a keypoint frame in pixel
// coordinates of a width x height image. A nil receiver yields a frame with
// every joint missing.
func (l *Landmarks) Frame(index, width, height int) pose.Frame {
	f := pose.Frame{Index: index}
	if l == nil {
		return f
	}

	for j, p := range l.Points {
		f.Joints[j] = pose.Keypoint{
			X:          p.X * float64(width),
			Y:          p.Y * float64(height),
			Z:          p.Z,
			Visibility: p.Visibility,
			Present:    true,
		}
	}
	return f
}

// FromFrame converts a pixel-space frame back to normalized landmarks.
// It returns nil when no joint of the frame is present.
func FromFrame(f pose.Frame, width, height int) *Landmarks {
	if width <= 0 || height <= 0 {
		return nil
	}

	l := &Landmarks{}
	found := false
	for j, kp := range f.Joints {
		if !kp.Present {
			continue
		}
		found = true
		l.Points[j] = Landmark{
			X:          kp.X / float64(width),
			Y:          kp.Y / float64(height),
			Z:          kp.Z,
			Visibility: kp.Visibility,
		}
	}
	if !found {
		return nil
	}
	return l
}
