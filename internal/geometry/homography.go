package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate is returned when four correspondences do not determine a
// projective transform, e.g. three of the points are collinear.
var ErrDegenerate = errors.New("degenerate correspondence")

// scaleEpsilon is the magnitude below which a basis scale factor counts as zero.
// The factors are dimensionless (they sum to 1), so an absolute bound works for
// any coordinate range.
const scaleEpsilon = 1e-10

// Homography is a 3x3 projective transform between two planes.
// Values are only produced by EstimateHomography.
type Homography struct {
	m *mat.Dense
}

// EstimateHomography computes the projective transform taking src[i] to
// dst[i] for all four correspondences.
//
// Each quad is expressed as the image of the projective unit basis: solving
// [p1 p2 p3]·[l m t]ᵀ = p4 in homogeneous coordinates gives the scale factors
// of the basis matrix. The homography is unitToDst · unitToSrc⁻¹.
func EstimateHomography(src, dst Quad) (Homography, error) {
	unitToSrc, err := unitToQuad(src)
	if err != nil {
		return Homography{}, fmt.Errorf("source quad: %w", err)
	}

	unitToDst, err := unitToQuad(dst)
	if err != nil {
		return Homography{}, fmt.Errorf("destination quad: %w", err)
	}

	var srcToUnit mat.Dense
	if err := srcToUnit.Inverse(unitToSrc); err != nil {
		return Homography{}, fmt.Errorf("invert source basis: %w", ErrDegenerate)
	}

	h := mat.NewDense(3, 3, nil)
	h.Mul(unitToDst, &srcToUnit)

	return Homography{m: h}, nil
}

// unitToQuad builds the matrix mapping the projective unit basis onto q.
func unitToQuad(q Quad) (*mat.Dense, error) {
	basis := mat.NewDense(3, 3, []float64{
		q[0].X, q[1].X, q[2].X,
		q[0].Y, q[1].Y, q[2].Y,
		1, 1, 1,
	})
	target := mat.NewVecDense(3, []float64{q[3].X, q[3].Y, 1})

	var scale mat.VecDense
	if err := scale.SolveVec(basis, target); err != nil {
		return nil, ErrDegenerate
	}

	l, m, t := scale.AtVec(0), scale.AtVec(1), scale.AtVec(2)
	for _, f := range []float64{l, m, t} {
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) < scaleEpsilon {
			return nil, ErrDegenerate
		}
	}

	return mat.NewDense(3, 3, []float64{
		l * q[0].X, m * q[1].X, t * q[2].X,
		l * q[0].Y, m * q[1].Y, t * q[2].Y,
		l, m, t,
	}), nil
}

// Apply maps p through the homography, normalizing by the homogeneous scale.
func (h Homography) Apply(p Point2D) (Point2D, error) {
	if h.m == nil {
		return Point2D{}, ErrDegenerate
	}

	var out mat.VecDense
	out.MulVec(h.m, mat.NewVecDense(3, []float64{p.X, p.Y, 1}))

	w := out.AtVec(2)
	if w == 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		return Point2D{}, ErrDegenerate
	}

	return Point2D{X: out.AtVec(0) / w, Y: out.AtVec(1) / w}, nil
}

// At returns the matrix element at row i, column j.
func (h Homography) At(i, j int) float64 {
	if h.m == nil {
		return 0
	}
	return h.m.At(i, j)
}
