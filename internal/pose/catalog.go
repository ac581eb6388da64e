// Package pose provides the body keypoint model, the keypoint loader and the
// preprocessing pipeline (interpolate, smooth, normalize) for pose comparison.
package pose

import "fmt"

// Joint is an index into the 33-landmark body catalog.
type Joint int

// Body landmark indices following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           Joint = 0
	LeftEyeInner   Joint = 1
	LeftEye        Joint = 2
	LeftEyeOuter   Joint = 3
	RightEyeInner  Joint = 4
	RightEye       Joint = 5
	RightEyeOuter  Joint = 6
	LeftEar        Joint = 7
	RightEar       Joint = 8
	MouthLeft      Joint = 9
	MouthRight     Joint = 10
	LeftShoulder   Joint = 11
	RightShoulder  Joint = 12
	LeftElbow      Joint = 13
	RightElbow     Joint = 14
	LeftWrist      Joint = 15
	RightWrist     Joint = 16
	LeftPinky      Joint = 17
	RightPinky     Joint = 18
	LeftIndex      Joint = 19
	RightIndex     Joint = 20
	LeftThumb      Joint = 21
	RightThumb     Joint = 22
	LeftHip        Joint = 23
	RightHip       Joint = 24
	LeftKnee       Joint = 25
	RightKnee      Joint = 26
	LeftAnkle      Joint = 27
	RightAnkle     Joint = 28
	LeftHeel       Joint = 29
	RightHeel      Joint = 30
	LeftFootIndex  Joint = 31
	RightFootIndex Joint = 32
	NumJoints            = 33
)

// JointNames lists the landmark names in catalog order.
var JointNames = [NumJoints]string{
	"nose", "left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear", "mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_pinky", "right_pinky",
	"left_index", "right_index", "left_thumb", "right_thumb",
	"left_hip", "right_hip", "left_knee", "right_knee",
	"left_ankle", "right_ankle", "left_heel", "right_heel",
	"left_foot_index", "right_foot_index",
}

// String returns the landmark name.
func (j Joint) String() string {
	if j < 0 || int(j) >= NumJoints {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return JointNames[j]
}

// Triplet names three joints whose middle joint B is the vertex of a measured angle.
type Triplet struct {
	Name    string
	A, B, C Joint
}

// NumTriplets is the size of the angle catalog.
const NumTriplets = 12

// Catalog indices with a fixed role in scoring and feedback.
const (
	LeftElbowAngle = iota
	RightElbowAngle
	LeftWristAngle
	RightWristAngle
	LeftKneeAngle
	RightKneeAngle
	LeftAnkleAngle
	RightAnkleAngle
	RightShoulderAngle
	LeftShoulderAngle
	LeftHipAngle
	RightHipAngle
)

// Catalog is the immutable joint and angle-triplet configuration shared by
// every component of a comparison. Build it once with DefaultCatalog.
type Catalog struct {
	triplets [NumTriplets]Triplet
	byName   map[string]Joint
}

// angleJoints are the named triplets resolved into the catalog, in order.
var angleJoints = [NumTriplets][4]string{
	{"left_elbow", "left_shoulder", "left_elbow", "left_wrist"},
	{"right_elbow", "right_shoulder", "right_elbow", "right_wrist"},
	{"left_wrist", "left_elbow", "left_wrist", "left_index"},
	{"right_wrist", "right_elbow", "right_wrist", "right_index"},
	{"left_knee", "left_hip", "left_knee", "left_ankle"},
	{"right_knee", "right_hip", "right_knee", "right_ankle"},
	{"left_ankle", "left_knee", "left_ankle", "left_foot_index"},
	{"right_ankle", "right_knee", "right_ankle", "right_foot_index"},
	{"right_shoulder", "right_hip", "right_shoulder", "right_elbow"},
	{"left_shoulder", "left_hip", "left_shoulder", "left_elbow"},
	{"left_hip", "right_hip", "left_hip", "left_knee"},
	{"right_hip", "left_hip", "right_hip", "right_knee"},
}

var defaultCatalog = mustBuildCatalog()

// DefaultCatalog returns the shared 33-joint, 12-triplet catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

func mustBuildCatalog() *Catalog {
	c := &Catalog{byName: make(map[string]Joint, NumJoints)}
	for i, name := range JointNames {
		c.byName[name] = Joint(i)
	}

	for i, names := range angleJoints {
		a, okA := c.byName[names[1]]
		b, okB := c.byName[names[2]]
		cc, okC := c.byName[names[3]]
		if !okA || !okB || !okC {
			panic(fmt.Sprintf("pose: unresolved angle triplet %v", names))
		}
		c.triplets[i] = Triplet{Name: names[0], A: a, B: b, C: cc}
	}

	return c
}

// Triplets returns a copy of the angle triplets in catalog order.
func (c *Catalog) Triplets() []Triplet {
	out := make([]Triplet, NumTriplets)
	copy(out, c.triplets[:])
	return out
}

// Triplet returns the i-th angle triplet.
func (c *Catalog) Triplet(i int) Triplet {
	return c.triplets[i]
}

// Len returns the number of angle triplets.
func (c *Catalog) Len() int {
	return NumTriplets
}

// JointByName resolves a landmark name.
func (c *Catalog) JointByName(name string) (Joint, bool) {
	j, ok := c.byName[name]
	return j, ok
}

// IsFlex reports whether triplet i is an elbow or knee, where bend direction matters.
func IsFlex(i int) bool {
	switch i {
	case LeftElbowAngle, RightElbowAngle, LeftKneeAngle, RightKneeAngle:
		return true
	}
	return false
}

// IsExtremity reports whether triplet i is a wrist or ankle. These are scored
// but never reported as feedback.
func IsExtremity(i int) bool {
	switch i {
	case LeftWristAngle, RightWristAngle, LeftAnkleAngle, RightAnkleAngle:
		return true
	}
	return false
}

// IsShoulder reports whether triplet i measures a shoulder.
func IsShoulder(i int) bool {
	return i == RightShoulderAngle || i == LeftShoulderAngle
}

// IsHip reports whether triplet i measures a hip.
func IsHip(i int) bool {
	return i == LeftHipAngle || i == RightHipAngle
}
