package pointer

import (
	"math"

	"github.com/ayusman/irplan/internal/geometry"
)

// Smoothing constants.
const (
	// SmoothingCapacity is the number of recent raw positions kept.
	SmoothingCapacity = 8
	// SmoothingDecay is the exponent step between adjacent weights.
	SmoothingDecay = 0.5
)

// Smoother stabilizes a stream of raw positions with a recency-weighted
// average over the last SmoothingCapacity samples.
//
// A Smoother is not safe for concurrent use.
type Smoother struct {
	buffer  []geometry.Point2D
	weights [SmoothingCapacity]float64
}

// NewSmoother creates a Smoother with weights exp(i·0.5), normalized to sum
// to 1. Index 0 weighs the oldest retained sample.
func NewSmoother() *Smoother {
	s := &Smoother{
		buffer: make([]geometry.Point2D, 0, SmoothingCapacity),
	}

	var sum float64
	for i := range s.weights {
		s.weights[i] = math.Exp(float64(i) * SmoothingDecay)
		sum += s.weights[i]
	}
	for i := range s.weights {
		s.weights[i] /= sum
	}

	return s
}

// Push records a raw position and returns the smoothed position.
//
// While fewer than SmoothingCapacity samples are held, the samples are paired
// with the newest weights and the result is divided by the sum of those
// weights, so the output stays inside the convex hull of the buffer.
func (s *Smoother) Push(p geometry.Point2D) geometry.Point2D {
	if len(s.buffer) >= SmoothingCapacity {
		copy(s.buffer, s.buffer[1:])
		s.buffer = s.buffer[:SmoothingCapacity-1]
	}
	s.buffer = append(s.buffer, p)

	return s.average()
}

func (s *Smoother) average() geometry.Point2D {
	offset := SmoothingCapacity - len(s.buffer)

	var x, y, wsum float64
	for i, p := range s.buffer {
		w := s.weights[offset+i]
		x += p.X * w
		y += p.Y * w
		wsum += w
	}

	return geometry.Point2D{X: x / wsum, Y: y / wsum}
}

// Last returns the most recent smoothed position.
// The second return value is false if no sample has been pushed.
func (s *Smoother) Last() (geometry.Point2D, bool) {
	if len(s.buffer) == 0 {
		return geometry.Point2D{}, false
	}
	return s.average(), true
}

// Len returns the number of samples currently held.
func (s *Smoother) Len() int {
	return len(s.buffer)
}

// Samples returns a copy of the buffered raw positions, oldest first.
func (s *Smoother) Samples() []geometry.Point2D {
	out := make([]geometry.Point2D, len(s.buffer))
	copy(out, s.buffer)
	return out
}

// Weights returns a copy of the weight vector, oldest slot first.
func (s *Smoother) Weights() []float64 {
	out := make([]float64, SmoothingCapacity)
	copy(out, s.weights[:])
	return out
}

// Reset discards all buffered samples.
func (s *Smoother) Reset() {
	s.buffer = s.buffer[:0]
}
