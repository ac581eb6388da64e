// Package posetest provides synthetic body poses and sequences for tests.
package posetest

import (
	"math"

	"github.com/yujeong-lee-1996/temp-kpop/internal/pose"
)

// standing holds image-space coordinates (y grows downward) of a relaxed
// standing pose, arms slightly bent, in catalog order.
var standing = [pose.NumJoints][2]float64{
	{320, 100}, // nose
	{312, 92}, {308, 92}, {304, 92}, // left eye
	{328, 92}, {332, 92}, {336, 92}, // right eye
	{298, 98}, {342, 98}, // ears
	{314, 112}, {326, 112}, // mouth
	{360, 160}, {280, 160}, // shoulders
	{390, 230}, {250, 230}, // elbows
	{400, 300}, {240, 300}, // wrists
	{405, 320}, {235, 320}, // pinkies
	{402, 325}, {238, 325}, // index fingers
	{395, 315}, {245, 315}, // thumbs
	{345, 320}, {295, 320}, // hips
	{350, 420}, {290, 420}, // knees
	{352, 520}, {288, 520}, // ankles
	{355, 535}, {285, 535}, // heels
	{370, 540}, {270, 540}, // foot index
}

// RightForearm lists the joints that move with the right forearm.
var RightForearm = []pose.Joint{pose.RightWrist, pose.RightPinky, pose.RightIndex, pose.RightThumb}

// StandingFrame returns a fully visible standing pose in image coordinates.
func StandingFrame(index int) pose.Frame {
	f := pose.Frame{Index: index}
	for j, xy := range standing {
		f.Joints[j] = pose.Keypoint{X: xy[0], Y: xy[1], Visibility: 0.99, Present: true}
	}
	return f
}

// Sequence returns n copies of the standing pose at the given fps.
func Sequence(n, fps int) pose.Sequence {
	seq := pose.Sequence{FPS: fps, Frames: make([]pose.Frame, n)}
	for t := range seq.Frames {
		seq.Frames[t] = StandingFrame(t)
	}
	return seq
}

// Transform applies p' = a*p + (bx, by) to every joint of the frame.
func Transform(f pose.Frame, a, bx, by float64) pose.Frame {
	out := f
	for j := range out.Joints {
		out.Joints[j].X = a*f.Joints[j].X + bx
		out.Joints[j].Y = a*f.Joints[j].Y + by
		out.Joints[j].Z = a * f.Joints[j].Z
	}
	return out
}

// RotateAbout rotates the given joints of f by deg degrees in the image plane
// around pivot and returns the modified frame.
func RotateAbout(f pose.Frame, pivot pose.Joint, joints []pose.Joint, deg float64) pose.Frame {
	out := f
	rad := deg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	cx, cy := f.Joints[pivot].X, f.Joints[pivot].Y

	for _, j := range joints {
		dx := f.Joints[j].X - cx
		dy := f.Joints[j].Y - cy
		out.Joints[j].X = cx + dx*cos - dy*sin
		out.Joints[j].Y = cy + dx*sin + dy*cos
	}
	return out
}

// BentRightElbow returns a sequence of n standing frames where frames in
// [from, to) have the right forearm rotated by deg degrees about the elbow.
func BentRightElbow(n, fps, from, to int, deg float64) pose.Sequence {
	seq := Sequence(n, fps)
	for t := from; t < to && t < n; t++ {
		seq.Frames[t] = RotateAbout(seq.Frames[t], pose.RightElbow, RightForearm, deg)
	}
	return seq
}
