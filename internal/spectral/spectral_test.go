package spectral

import (
	"math"
	"testing"
)

func TestRing_FIFO(t *testing.T) {
	r := NewRing(3)

	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", r.Len())
	}

	for i := 1; i <= 5; i++ {
		r.Push(float64(i))
	}

	got := r.Slice()
	want := []float64{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("Slice() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Slice()[%d] = %f, want %f", i, got[i], want[i])
		}
	}

	r.Reset()
	if r.Len() != 0 || len(r.Slice()) != 0 {
		t.Errorf("ring should be empty after Reset, got %v", r.Slice())
	}
}

func TestRing_PartialFill(t *testing.T) {
	r := NewRing(4)
	r.Push(7)
	r.Push(8)

	got := r.Slice()
	if len(got) != 2 || got[0] != 7 || got[1] != 8 {
		t.Errorf("Slice() = %v, want [7 8]", got)
	}
	if r.Cap() != 4 {
		t.Errorf("Cap() = %d, want 4", r.Cap())
	}
}

func TestCombine_WeightsZ(t *testing.T) {
	got := Combine([]float64{1, 2}, []float64{3, 4}, []float64{3, 9})
	want := []float64{1 + 3 + 1, 2 + 4 + 3}

	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("Combine()[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestExtractor_BinCount(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		samples int
		bins    int
	}{
		{1, 0},
		{3, 0},
		{4, 1},
		{10, 4},
		{31, 14},
		{32, 15},
		{40, 15},
	}

	pushed := 0
	for _, tt := range tests {
		var s Spectrum
		for pushed < tt.samples {
			s = e.Push(float64(pushed%3), float64(pushed%5), float64(pushed%7))
			pushed++
		}
		if len(s) != tt.bins {
			t.Errorf("after %d samples: got %d bins, want %d", tt.samples, len(s), tt.bins)
		}
	}

	if e.Len() != BufferSize {
		t.Errorf("Len() = %d, want %d", e.Len(), BufferSize)
	}
}

func TestExtractor_SteadySignalHasNoEnergy(t *testing.T) {
	e := NewExtractor()

	var s Spectrum
	for i := 0; i < BufferSize; i++ {
		s = e.Push(1, 1, 1)
	}

	if len(s) != 15 {
		t.Fatalf("got %d bins, want 15", len(s))
	}
	for i, v := range s {
		if v > 1e-9 {
			t.Errorf("bin %d = %g, want ~0", i, v)
		}
	}
}

func TestExtractor_SinusoidPeak(t *testing.T) {
	e := NewExtractor()

	const cycles = 4
	var s Spectrum
	for i := 0; i < BufferSize; i++ {
		v := math.Sin(2 * math.Pi * cycles * float64(i) / BufferSize)
		s = e.Push(v, 0, 0)
	}

	// Bin k of the spectrum is DFT index k+1.
	peak := 0
	for i := range s {
		if s[i] > s[peak] {
			peak = i
		}
	}
	if peak != cycles-1 {
		t.Errorf("peak at bin %d, want %d", peak, cycles-1)
	}
	if math.Abs(s[peak]-0.5) > 1e-9 {
		t.Errorf("peak magnitude = %f, want 0.5", s[peak])
	}
}

func TestExtractor_Reset(t *testing.T) {
	e := NewExtractor()
	for i := 0; i < 10; i++ {
		e.Push(1, 2, 3)
	}
	e.Reset()

	if e.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", e.Len())
	}
}

func TestMagnitudes_MatchesExtractor(t *testing.T) {
	e := NewExtractor()
	x := make([]float64, BufferSize)
	y := make([]float64, BufferSize)
	z := make([]float64, BufferSize)

	var s Spectrum
	for i := 0; i < BufferSize; i++ {
		x[i] = math.Cos(float64(i) * 0.7)
		y[i] = float64(i % 4)
		z[i] = float64(i) * 0.1
		s = e.Push(x[i], y[i], z[i])
	}

	want := Magnitudes(Combine(x, y, z))
	if len(want) != len(s) {
		t.Fatalf("Magnitudes() has %d bins, extractor %d", len(want), len(s))
	}
	for i := range want {
		if math.Abs(want[i]-s[i]) > 1e-12 {
			t.Errorf("bin %d: Magnitudes = %g, extractor = %g", i, want[i], s[i])
		}
	}

	if len(Magnitudes([]float64{1, 2})) != 0 {
		t.Error("Magnitudes() of a short signal should be empty")
	}
}
