package geometry

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/yujeong-lee-1996/temp-kpop/internal/pose"
)

// scaleEpsilon keeps the scale finite for a collapsed source cloud.
const scaleEpsilon = 1e-8

// ErrSVD is returned when the cross-covariance factorization fails.
var ErrSVD = errors.New("procrustes: svd did not converge")

// Alignment is the result of fitting one joint cloud onto another.
type Alignment struct {
	// Rotation is the 3x3 orthogonal matrix applied to row vectors.
	Rotation *mat.Dense
	Scale    float64
	// Aligned is scale*X0*R, expressed in the target's centered frame.
	Aligned      []pose.Point3D
	Residuals    []float64
	MeanResidual float64
}

// Align finds the rotation and uniform scale that best map x onto y after
// centering both clouds on their centroids (orthogonal Procrustes). The
// rotation is U*Vt from the SVD of X0'Y0; reflections are left to the SVD
// sign convention.
func Align(x, y []pose.Point3D) (*Alignment, error) {
	if len(x) != len(y) {
		return nil, &pose.ShapeError{What: "procrustes cloud", Got: len(x), Want: len(y)}
	}
	if len(x) == 0 {
		return nil, &pose.ShapeError{What: "procrustes cloud", Got: 0, Want: pose.NumJoints}
	}

	x0 := centered(x)
	y0 := centered(y)

	var cov mat.Dense
	cov.Mul(x0.T(), y0)

	var svd mat.SVD
	if ok := svd.Factorize(&cov, mat.SVDFull); !ok {
		return nil, ErrSVD
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	r := mat.NewDense(3, 3, nil)
	r.Mul(&u, v.T())

	var xr mat.Dense
	xr.Mul(x0, r)

	var prod mat.Dense
	prod.MulElem(y0, &xr)
	norm := mat.Norm(x0, 2)
	scale := mat.Sum(&prod) / (norm*norm + scaleEpsilon)

	var aligned mat.Dense
	aligned.Scale(scale, &xr)

	n := len(x)
	res := &Alignment{
		Rotation:  r,
		Scale:     scale,
		Aligned:   make([]pose.Point3D, n),
		Residuals: make([]float64, n),
	}
	a := make([]float64, 3)
	b := make([]float64, 3)
	for i := 0; i < n; i++ {
		mat.Row(a, i, &aligned)
		mat.Row(b, i, y0)
		res.Aligned[i] = pose.Point3D{X: a[0], Y: a[1], Z: a[2]}
		res.Residuals[i] = floats.Distance(a, b, 2)
	}
	res.MeanResidual = stat.Mean(res.Residuals, nil)

	return res, nil
}

// FramePoints returns the joints of f as a point cloud.
func FramePoints(f *pose.Frame) []pose.Point3D {
	pts := JointPoints(f)
	return pts[:]
}

// centered returns the cloud as an n x 3 matrix with its centroid removed.
func centered(pts []pose.Point3D) *mat.Dense {
	n := len(pts)
	m := mat.NewDense(n, 3, nil)
	for i, p := range pts {
		m.Set(i, 0, p.X)
		m.Set(i, 1, p.Y)
		m.Set(i, 2, p.Z)
	}

	col := make([]float64, n)
	for c := 0; c < 3; c++ {
		mat.Col(col, c, m)
		mean := stat.Mean(col, nil)
		for i := 0; i < n; i++ {
			m.Set(i, c, m.At(i, c)-mean)
		}
	}
	return m
}
