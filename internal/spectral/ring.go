package spectral

// Ring is a fixed-capacity FIFO of float64 values. Once full, each push
// evicts the oldest value.
type Ring struct {
	data []float64
	pos  int
	full bool
}

// NewRing creates a Ring with the given capacity.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{data: make([]float64, capacity)}
}

// Push appends a value to the ring.
func (r *Ring) Push(v float64) {
	r.data[r.pos] = v
	r.pos++
	if r.pos >= len(r.data) {
		r.pos = 0
		r.full = true
	}
}

// Len returns the number of values held.
func (r *Ring) Len() int {
	if r.full {
		return len(r.data)
	}
	return r.pos
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.data)
}

// Slice returns the contents in insertion order, oldest first.
func (r *Ring) Slice() []float64 {
	out := make([]float64, r.Len())
	if r.full {
		n := copy(out, r.data[r.pos:])
		copy(out[n:], r.data[:r.pos])
	} else {
		copy(out, r.data[:r.pos])
	}
	return out
}

// Reset empties the ring.
func (r *Ring) Reset() {
	r.pos = 0
	r.full = false
}
