package gesture

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// SVC defaults.
const (
	// DefaultC is the soft-margin penalty.
	DefaultC = 1.0
	// DefaultTolerance is the stopping tolerance on the KKT violation.
	DefaultTolerance = 1e-3
	// tau replaces a non-positive curvature in the two-variable update.
	tau = 1e-12
)

// ErrNotFitted is returned when predicting with an SVC that has not been fitted.
var ErrNotFitted = errors.New("classifier model not fitted")

// SVC is a binary support vector classifier over a single feature with an
// RBF kernel. It is trained with sequential minimal optimization using the
// maximal violating pair.
type SVC struct {
	C         float64
	Tolerance float64
	// Gamma is the RBF kernel coefficient. Zero selects 1/Var(x) at fit time.
	Gamma float64
	// MaxIter bounds the number of optimization steps. Zero selects 100·n+1000.
	MaxIter int

	classes [2]Category
	vectors []float64
	coef    []float64
	rho     float64
	gamma   float64
	fitted  bool
}

// NewSVC creates an SVC with default parameters.
func NewSVC() *SVC {
	return &SVC{
		C:         DefaultC,
		Tolerance: DefaultTolerance,
	}
}

// Fit trains the classifier on scalar features x with the given labels.
// Exactly two distinct labels are required.
func (s *SVC) Fit(x []float64, labels []Category) error {
	if len(x) != len(labels) {
		return fmt.Errorf("feature/label count mismatch: %d vs %d", len(x), len(labels))
	}
	if len(x) == 0 {
		return errors.New("no training samples")
	}

	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("sample %d (%s): non-finite feature %v", i, labels[i], v)
		}
	}

	classes := uniqueCategories(labels)
	if len(classes) != 2 {
		return fmt.Errorf("need exactly 2 classes, got %d", len(classes))
	}
	s.classes = [2]Category{classes[0], classes[1]}

	n := len(x)
	y := make([]float64, n)
	for i, l := range labels {
		if l == s.classes[0] {
			y[i] = 1
		} else {
			y[i] = -1
		}
	}

	s.gamma = s.Gamma
	if s.gamma <= 0 {
		v := stat.PopVariance(x, nil)
		if v > 0 {
			s.gamma = 1 / v
		} else {
			s.gamma = 1
		}
	}

	c := s.C
	if c <= 0 {
		c = DefaultC
	}
	eps := s.Tolerance
	if eps <= 0 {
		eps = DefaultTolerance
	}
	maxIter := s.MaxIter
	if maxIter <= 0 {
		maxIter = 100*n + 1000
	}

	alpha := make([]float64, n)
	grad := make([]float64, n)
	for i := range grad {
		grad[i] = -1
	}

	upper := func(t int) bool {
		return (y[t] > 0 && alpha[t] < c) || (y[t] < 0 && alpha[t] > 0)
	}
	lower := func(t int) bool {
		return (y[t] > 0 && alpha[t] > 0) || (y[t] < 0 && alpha[t] < c)
	}

	iter := 0
	for ; iter < maxIter; iter++ {
		i, j := -1, -1
		gmax, gmin := math.Inf(-1), math.Inf(1)
		for t := 0; t < n; t++ {
			v := -y[t] * grad[t]
			if upper(t) && v > gmax {
				gmax, i = v, t
			}
			if lower(t) && v < gmin {
				gmin, j = v, t
			}
		}
		if i < 0 || j < 0 || gmax-gmin < eps {
			break
		}

		kij := s.kernel(x[i], x[j])
		oldI, oldJ := alpha[i], alpha[j]

		if y[i] != y[j] {
			quad := 2 - 2*kij
			if quad <= 0 {
				quad = tau
			}
			delta := (-grad[i] - grad[j]) / quad
			diff := alpha[i] - alpha[j]
			alpha[i] += delta
			alpha[j] += delta
			if diff > 0 {
				if alpha[j] < 0 {
					alpha[j] = 0
					alpha[i] = diff
				}
			} else if alpha[i] < 0 {
				alpha[i] = 0
				alpha[j] = -diff
			}
			if diff > 0 {
				if alpha[i] > c {
					alpha[i] = c
					alpha[j] = c - diff
				}
			} else if alpha[j] > c {
				alpha[j] = c
				alpha[i] = c + diff
			}
		} else {
			quad := 2 - 2*kij
			if quad <= 0 {
				quad = tau
			}
			delta := (grad[i] - grad[j]) / quad
			sum := alpha[i] + alpha[j]
			alpha[i] -= delta
			alpha[j] += delta
			if sum > c {
				if alpha[i] > c {
					alpha[i] = c
					alpha[j] = sum - c
				}
				if alpha[j] > c {
					alpha[j] = c
					alpha[i] = sum - c
				}
			} else {
				if alpha[j] < 0 {
					alpha[j] = 0
					alpha[i] = sum
				}
				if alpha[i] < 0 {
					alpha[i] = 0
					alpha[j] = sum
				}
			}
		}

		dI, dJ := alpha[i]-oldI, alpha[j]-oldJ
		for k := 0; k < n; k++ {
			grad[k] += y[k] * (y[i]*s.kernel(x[i], x[k])*dI + y[j]*s.kernel(x[j], x[k])*dJ)
		}
	}
	if iter >= maxIter {
		log.Printf("gesture: svc reached max iterations (%d)", maxIter)
	}

	s.rho = computeRho(y, grad, alpha, c)

	s.vectors = s.vectors[:0]
	s.coef = s.coef[:0]
	for i := range alpha {
		if alpha[i] > 0 {
			s.vectors = append(s.vectors, x[i])
			s.coef = append(s.coef, alpha[i]*y[i])
		}
	}
	s.fitted = true

	return nil
}

// computeRho derives the bias from the final gradient: the mean of y·G over
// free vectors, or the midpoint of the feasible interval when none are free.
func computeRho(y, grad, alpha []float64, c float64) float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	var sumFree float64
	nFree := 0

	for i := range alpha {
		yg := y[i] * grad[i]
		switch {
		case alpha[i] >= c:
			if y[i] < 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case alpha[i] <= 0:
			if y[i] > 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			nFree++
			sumFree += yg
		}
	}

	if nFree > 0 {
		return sumFree / float64(nFree)
	}
	return (ub + lb) / 2
}

func (s *SVC) kernel(a, b float64) float64 {
	d := a - b
	return math.Exp(-s.gamma * d * d)
}

// Decision returns the signed distance of v from the separating surface.
// Positive values belong to the first class in Classes.
func (s *SVC) Decision(v float64) (float64, error) {
	if !s.fitted {
		return 0, ErrNotFitted
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite feature %v", v)
	}

	var sum float64
	for i, sv := range s.vectors {
		sum += s.coef[i] * s.kernel(sv, v)
	}
	return sum - s.rho, nil
}

// Predict returns the class of a single feature value.
func (s *SVC) Predict(v float64) (Category, error) {
	d, err := s.Decision(v)
	if err != nil {
		return "", err
	}
	if d > 0 {
		return s.classes[0], nil
	}
	return s.classes[1], nil
}

// Score returns the fraction of x predicted as the matching label.
func (s *SVC) Score(x []float64, labels []Category) (float64, error) {
	if len(x) != len(labels) || len(x) == 0 {
		return 0, fmt.Errorf("invalid evaluation set: %d features, %d labels", len(x), len(labels))
	}

	correct := 0
	for i, v := range x {
		p, err := s.Predict(v)
		if err != nil {
			return 0, err
		}
		if p == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(x)), nil
}

// Classes returns the two class labels in sorted order.
func (s *SVC) Classes() [2]Category {
	return s.classes
}

// SupportVectors returns the number of support vectors.
func (s *SVC) SupportVectors() int {
	return len(s.vectors)
}

// uniqueCategories returns the distinct labels in sorted order.
func uniqueCategories(labels []Category) []Category {
	seen := make(map[Category]bool)
	var out []Category
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
