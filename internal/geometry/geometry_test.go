package geometry

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-6

func pointsEqual(a, b Point2D) bool {
	return math.Abs(a.X-b.X) < tolerance && math.Abs(a.Y-b.Y) < tolerance
}

// permutations returns every ordering of the four points in q.
func permutations(q Quad) []Quad {
	var out []Quad
	var permute func(k int, cur Quad)
	permute = func(k int, cur Quad) {
		if k == len(cur) {
			out = append(out, cur)
			return
		}
		for i := k; i < len(cur); i++ {
			next := cur
			next[k], next[i] = next[i], next[k]
			permute(k+1, next)
		}
	}
	permute(0, q)
	return out
}

func TestOrderCorners_Canonical(t *testing.T) {
	q := Quad{{100, 380}, {540, 100}, {100, 100}, {540, 380}}

	got := OrderCorners(q)
	want := Quad{{100, 100}, {540, 100}, {540, 380}, {100, 380}}

	if got != want {
		t.Errorf("OrderCorners() = %v, want %v", got, want)
	}
}

func TestOrderCorners_PermutationInvariant(t *testing.T) {
	tests := []struct {
		name string
		quad Quad
	}{
		{"axis aligned", Quad{{100, 100}, {540, 100}, {540, 380}, {100, 380}}},
		{"perspective", Quad{{210, 150}, {790, 180}, {830, 610}, {170, 560}}},
		{"rotated", Quad{{400, 90}, {700, 300}, {480, 620}, {180, 400}}},
		{"shared y", Quad{{100, 200}, {300, 200}, {320, 500}, {90, 500}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := OrderCorners(tt.quad)
			for _, p := range permutations(tt.quad) {
				if got := OrderCorners(p); got != want {
					t.Fatalf("OrderCorners(%v) = %v, want %v", p, got, want)
				}
			}
		})
	}
}

func TestOrderCorners_IsPermutation(t *testing.T) {
	q := Quad{{5, 9}, {1, 2}, {7, 3}, {2, 8}}
	got := OrderCorners(q)

	for _, p := range q {
		found := false
		for _, g := range got {
			if g == p {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("point %v missing from %v", p, got)
		}
	}
}

func TestDisplayCorners(t *testing.T) {
	t.Run("upright", func(t *testing.T) {
		got := DisplayCorners(640, 480, false)
		want := Quad{{0, 0}, {640, 0}, {640, 480}, {0, 480}}
		if got != want {
			t.Errorf("DisplayCorners() = %v, want %v", got, want)
		}
		if OrderCorners(got) != got {
			t.Errorf("upright corners should already be in canonical order")
		}
	})

	t.Run("inverted", func(t *testing.T) {
		got := DisplayCorners(640, 480, true)
		want := Quad{{0, 480}, {640, 480}, {640, 0}, {0, 0}}
		if got != want {
			t.Errorf("DisplayCorners() = %v, want %v", got, want)
		}
	})
}

func TestEstimateHomography_Identity(t *testing.T) {
	q := OrderCorners(Quad{{210, 150}, {790, 180}, {830, 610}, {170, 560}})

	h, err := EstimateHomography(q, q)
	if err != nil {
		t.Fatalf("EstimateHomography() error = %v", err)
	}

	for _, p := range []Point2D{{0, 0}, {512, 384}, {1023, 767}, {-50, 900}, {333.3, 12.5}} {
		got, err := h.Apply(p)
		if err != nil {
			t.Fatalf("Apply(%v) error = %v", p, err)
		}
		if !pointsEqual(got, p) {
			t.Errorf("Apply(%v) = %v, want identity", p, got)
		}
	}
}

func TestEstimateHomography_WorkedExample(t *testing.T) {
	src := OrderCorners(Quad{{100, 100}, {540, 100}, {540, 380}, {100, 380}})
	dst := DisplayCorners(640, 480, false)

	h, err := EstimateHomography(src, dst)
	if err != nil {
		t.Fatalf("EstimateHomography() error = %v", err)
	}

	got, err := h.Apply(Point2D{X: 320, Y: 240})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if !pointsEqual(got, Point2D{X: 320, Y: 240}) {
		t.Errorf("Apply(320,240) = %v, want (320,240)", got)
	}
}

func TestEstimateHomography_MapsCorrespondences(t *testing.T) {
	src := OrderCorners(Quad{{210, 150}, {790, 180}, {830, 610}, {170, 560}})
	dst := DisplayCorners(1920, 1080, true)

	h, err := EstimateHomography(src, dst)
	if err != nil {
		t.Fatalf("EstimateHomography() error = %v", err)
	}

	for i := range src {
		got, err := h.Apply(src[i])
		if err != nil {
			t.Fatalf("Apply(%v) error = %v", src[i], err)
		}
		if got.Distance(dst[i]) > 1e-6 {
			t.Errorf("corner %d: Apply(%v) = %v, want %v", i, src[i], got, dst[i])
		}
	}
}

func TestEstimateHomography_PreservesLines(t *testing.T) {
	src := OrderCorners(Quad{{210, 150}, {790, 180}, {830, 610}, {170, 560}})
	dst := DisplayCorners(800, 600, false)

	h, err := EstimateHomography(src, dst)
	if err != nil {
		t.Fatalf("EstimateHomography() error = %v", err)
	}

	a, _ := h.Apply(Point2D{X: 300, Y: 300})
	b, _ := h.Apply(Point2D{X: 500, Y: 400})
	c, _ := h.Apply(Point2D{X: 700, Y: 500})

	cross := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	if math.Abs(cross) > 1e-6 {
		t.Errorf("collinear points mapped to non-collinear points, cross = %g", cross)
	}
}

func TestEstimateHomography_Degenerate(t *testing.T) {
	good := Quad{{0, 0}, {640, 0}, {640, 480}, {0, 480}}

	tests := []struct {
		name string
		src  Quad
		dst  Quad
	}{
		{"collinear source basis", Quad{{0, 0}, {1, 1}, {2, 2}, {5, 1}}, good},
		{"collinear destination basis", good, Quad{{0, 0}, {10, 0}, {20, 0}, {5, 5}}},
		{"fourth point on basis edge", Quad{{0, 0}, {10, 0}, {10, 10}, {5, 0}}, good},
		{"coincident points", Quad{{3, 3}, {3, 3}, {3, 3}, {3, 3}}, good},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EstimateHomography(tt.src, tt.dst)
			if !errors.Is(err, ErrDegenerate) {
				t.Errorf("EstimateHomography() error = %v, want ErrDegenerate", err)
			}
		})
	}
}

func TestHomography_ZeroValue(t *testing.T) {
	var h Homography
	if _, err := h.Apply(Point2D{X: 1, Y: 1}); !errors.Is(err, ErrDegenerate) {
		t.Errorf("zero Homography Apply() error = %v, want ErrDegenerate", err)
	}
}
