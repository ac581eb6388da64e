package pose

// DefaultSmoothWindow is the moving-average window used by Preprocess callers.
const DefaultSmoothWindow = 5

// normEpsilon keeps Normalize finite when shoulders and hips coincide.
const normEpsilon = 1e-6

// Interpolate fills gaps per joint and coordinate channel by linear
// interpolation over frame index. Frames with Visibility > 0 are anchors;
// frames before the first or after the last anchor take that anchor's value.
// A joint with fewer than two anchors is left unchanged.
// Returns a new Sequence.
func Interpolate(seq Sequence) Sequence {
	out := seq.Clone()
	n := len(seq.Frames)

	anchors := make([]int, 0, n)
	for j := 0; j < NumJoints; j++ {
		anchors = anchors[:0]
		for t := 0; t < n; t++ {
			if seq.Frames[t].Joints[j].Visibility > 0 {
				anchors = append(anchors, t)
			}
		}
		if len(anchors) < 2 {
			continue
		}

		for c := 0; c < 3; c++ {
			k := 0
			for t := 0; t < n; t++ {
				for k < len(anchors)-1 && anchors[k+1] <= t {
					k++
				}
				out.Frames[t].Joints[j].setChannel(c, interpAt(seq, j, c, anchors, k, t))
			}
		}
		for t := 0; t < n; t++ {
			out.Frames[t].Joints[j].Present = true
		}
	}

	return out
}

// interpAt evaluates the piecewise-linear fit at frame t, where anchors[k] is
// the last anchor at or before t (or the first anchor when t precedes it).
func interpAt(seq Sequence, j, c int, anchors []int, k, t int) float64 {
	first, last := anchors[0], anchors[len(anchors)-1]
	switch {
	case t <= first:
		return seq.Frames[first].Joints[j].channel(c)
	case t >= last:
		return seq.Frames[last].Joints[j].channel(c)
	}

	t0, t1 := anchors[k], anchors[k+1]
	v0 := seq.Frames[t0].Joints[j].channel(c)
	v1 := seq.Frames[t1].Joints[j].channel(c)
	frac := float64(t-t0) / float64(t1-t0)
	return v0 + frac*(v1-v0)
}

// Smooth applies a centered moving average of the given window length to
// every joint and coordinate channel. The output has the input's length;
// window taps falling outside the sequence contribute zero, so the first and
// last window/2 frames taper toward the origin. For frame t the taps span
// [t+(w-1)/2-(w-1), t+(w-1)/2]. A window of 1 or less returns a copy.
// Visibility and presence are carried over unchanged.
func Smooth(seq Sequence, window int) Sequence {
	out := seq.Clone()
	if window <= 1 {
		return out
	}

	n := len(seq.Frames)
	half := (window - 1) / 2
	inv := 1.0 / float64(window)

	for j := 0; j < NumJoints; j++ {
		for c := 0; c < 3; c++ {
			for t := 0; t < n; t++ {
				hi := t + half
				lo := hi - (window - 1)
				var sum float64
				for s := max(lo, 0); s <= min(hi, n-1); s++ {
					sum += seq.Frames[s].Joints[j].channel(c)
				}
				out.Frames[t].Joints[j].setChannel(c, sum*inv)
			}
		}
	}

	return out
}

// Normalize translates every frame so the mid-hip root is at the origin and
// scales it by the root-to-mid-shoulder distance (plus a small epsilon).
// The result is invariant to subject position and camera-relative body size.
func Normalize(seq Sequence) Sequence {
	out := seq.Clone()

	for t := range seq.Frames {
		f := &seq.Frames[t]
		root := f.Root()
		scale := f.ShoulderMid().Sub(root).Norm() + normEpsilon

		for j := 0; j < NumJoints; j++ {
			kp := &out.Frames[t].Joints[j]
			kp.X = (f.Joints[j].X - root.X) / scale
			kp.Y = (f.Joints[j].Y - root.Y) / scale
			kp.Z = (f.Joints[j].Z - root.Z) / scale
		}
	}

	return out
}

// Preprocess runs the fixed pipeline interpolate -> smooth -> normalize.
func Preprocess(seq Sequence, window int) Sequence {
	return Normalize(Smooth(Interpolate(seq), window))
}

// Stages holds the intermediate sequences of Preprocess. Smoothed is the last
// stage still in image coordinates.
type Stages struct {
	Interpolated Sequence
	Smoothed     Sequence
	Normalized   Sequence
}

// PreprocessStages runs the pipeline and keeps every stage's output.
func PreprocessStages(seq Sequence, window int) Stages {
	interp := Interpolate(seq)
	smoothed := Smooth(interp, window)
	return Stages{
		Interpolated: interp,
		Smoothed:     smoothed,
		Normalized:   Normalize(smoothed),
	}
}
