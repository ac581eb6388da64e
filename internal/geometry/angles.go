// Package geometry computes joint angles and per-frame shape alignment.
package geometry

import (
	"math"

	"github.com/yujeong-lee-1996/temp-kpop/internal/pose"
)

// segmentEpsilon is the shortest segment for which an angle is defined.
const segmentEpsilon = 1e-6

// FrameAngles holds the catalog angles of one frame, in radians.
type FrameAngles struct {
	Interior []float64 `json:"interior"`
	Bend     []float64 `json:"bend"`
}

// InteriorAngle returns the angle at p2 in [0, π] using only x and y.
// It is 0 when either segment touching p2 is degenerate.
func InteriorAngle(p1, p2, p3 pose.Point3D) float64 {
	d1 := math.Hypot(p1.X-p2.X, p1.Y-p2.Y)
	d2 := math.Hypot(p3.X-p2.X, p3.Y-p2.Y)
	d3 := math.Hypot(p1.X-p3.X, p1.Y-p3.Y)
	if d1 < segmentEpsilon || d2 < segmentEpsilon {
		return 0
	}

	// Law of cosines.
	cos := (d1*d1 + d2*d2 - d3*d3) / (2 * d1 * d2)
	return math.Acos(clamp(cos, -1, 1))
}

// SignedBendAngle returns π minus the interior angle at p2, signed by the z
// component of (p1-p2) x (p3-p2). Collinear and degenerate triplets give 0.
func SignedBendAngle(p1, p2, p3 pose.Point3D) float64 {
	v1x, v1y := p1.X-p2.X, p1.Y-p2.Y
	v2x, v2y := p3.X-p2.X, p3.Y-p2.Y
	n1 := math.Hypot(v1x, v1y)
	n2 := math.Hypot(v2x, v2y)
	if n1 < segmentEpsilon || n2 < segmentEpsilon {
		return 0
	}

	theta := math.Acos(clamp((v1x*v2x+v1y*v2y)/(n1*n2), -1, 1))
	cross := v1x*v2y - v1y*v2x
	return sign(cross) * (math.Pi - theta)
}

// AngleDiff returns the signed minimal circular difference a-b in [-π, π).
func AngleDiff(a, b float64) float64 {
	d := math.Mod(a-b+math.Pi, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	return d - math.Pi
}

// ComputeAngles evaluates every catalog triplet on one set of joints.
func ComputeAngles(cat *pose.Catalog, pts *[pose.NumJoints]pose.Point3D) FrameAngles {
	fa := FrameAngles{
		Interior: make([]float64, cat.Len()),
		Bend:     make([]float64, cat.Len()),
	}
	for i, tr := range cat.Triplets() {
		a, b, c := pts[tr.A], pts[tr.B], pts[tr.C]
		fa.Interior[i] = InteriorAngle(a, b, c)
		fa.Bend[i] = SignedBendAngle(a, b, c)
	}
	return fa
}

// SequenceAngles computes the catalog angles of every frame.
func SequenceAngles(cat *pose.Catalog, seq pose.Sequence) []FrameAngles {
	out := make([]FrameAngles, len(seq.Frames))
	for t := range seq.Frames {
		pts := JointPoints(&seq.Frames[t])
		out[t] = ComputeAngles(cat, &pts)
	}
	return out
}

// JointPoints returns the coordinates of every joint of f.
func JointPoints(f *pose.Frame) [pose.NumJoints]pose.Point3D {
	var pts [pose.NumJoints]pose.Point3D
	for j := range f.Joints {
		pts[j] = f.Joints[j].Point()
	}
	return pts
}

// ToDegrees converts radians to degrees.
func ToDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// ToRadians converts degrees to radians.
func ToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
