// Package trajectory extracts whole-body root trajectories and aligns them
// with dynamic time warping.
package trajectory

import (
	"math"

	"github.com/yujeong-lee-1996/temp-kpop/internal/pose"
)

// RootTrajectory returns the mid-hip point of every frame.
func RootTrajectory(seq pose.Sequence) []pose.Point3D {
	out := make([]pose.Point3D, len(seq.Frames))
	for t := range seq.Frames {
		out[t] = seq.Frames[t].Root()
	}
	return out
}

// Options tunes the DTW recurrence.
type Options struct {
	// Window is the Sakoe-Chiba band half-width. Zero or negative disables
	// the band. The band is widened to |n-m| so the end cell stays reachable.
	Window int
}

// Result is a DTW alignment of two trajectories.
type Result struct {
	Distance float64
	// Path1 and Path2 hold the aligned indices into the first and second
	// trajectory, from (0,0) to (n-1,m-1).
	Path1 []int
	Path2 []int

	n, m int
}

// Normalized returns the distance divided by the longer trajectory length.
func (r Result) Normalized() float64 {
	if r.n == 0 || r.m == 0 {
		return math.Inf(1)
	}
	return r.Distance / float64(max(r.n, r.m))
}

// Distance returns the unbanded DTW distance between a and b.
func Distance(a, b []pose.Point3D) float64 {
	return DTW(a, b, Options{}).Distance
}

// DTW aligns two trajectories with Euclidean step cost. Returns an infinite
// distance and empty paths if either trajectory is empty.
//
// The path is recovered by backtracking from (n,m). On equal cumulative
// cost the diagonal step wins, then the step that drops a row, then the step
// that drops a column.
func DTW(a, b []pose.Point3D, opts Options) Result {
	n := len(a)
	m := len(b)

	// Handle empty trajectories
	if n == 0 || m == 0 {
		return Result{Distance: math.Inf(1), n: n, m: m}
	}

	window := n + m
	if opts.Window > 0 {
		window = max(opts.Window, abs(n-m))
	}

	// Create (n+1) x (m+1) cost matrix initialized to infinity
	dp := make([][]float64, n+1)
	for i := range dp {
		dp[i] = make([]float64, m+1)
		for j := range dp[i] {
			dp[i][j] = math.Inf(1)
		}
	}
	dp[0][0] = 0

	for i := 1; i <= n; i++ {
		lo := max(1, i-window)
		hi := min(m, i+window)
		for j := lo; j <= hi; j++ {
			cost := a[i-1].Sub(b[j-1]).Norm()
			dp[i][j] = cost + min3(dp[i-1][j-1], dp[i-1][j], dp[i][j-1])
		}
	}

	path1, path2 := backtrack(dp, n, m)
	return Result{
		Distance: dp[n][m],
		Path1:    path1,
		Path2:    path2,
		n:        n,
		m:        m,
	}
}

func backtrack(dp [][]float64, n, m int) ([]int, []int) {
	path1 := make([]int, 0, n+m)
	path2 := make([]int, 0, n+m)

	i, j := n, m
	for i > 0 && j > 0 {
		path1 = append(path1, i-1)
		path2 = append(path2, j-1)

		diag, up, left := dp[i-1][j-1], dp[i-1][j], dp[i][j-1]
		switch {
		case diag <= up && diag <= left:
			i, j = i-1, j-1
		case up <= left:
			i--
		default:
			j--
		}
	}

	// Collected end to start.
	for l, r := 0, len(path1)-1; l < r; l, r = l+1, r-1 {
		path1[l], path1[r] = path1[r], path1[l]
		path2[l], path2[r] = path2[r], path2[l]
	}
	return path1, path2
}

// min3 returns the minimum of three float64 values.
func min3(a, b, c float64) float64 {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
