// Package spectral turns a stream of 3-axis acceleration samples into the
// magnitude spectrum used for gesture classification.
package spectral

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// BufferSize is the number of samples kept per axis.
const BufferSize = 32

// Spectrum holds the magnitudes of the non-DC bins below Nyquist.
type Spectrum []float64

// Extractor keeps the most recent samples of each axis and computes the
// spectrum of their combined signal.
//
// An Extractor is not safe for concurrent use.
type Extractor struct {
	x, y, z *Ring
	ffts    map[int]*fourier.FFT
}

// NewExtractor creates an Extractor with BufferSize samples per axis.
func NewExtractor() *Extractor {
	return &Extractor{
		x:    NewRing(BufferSize),
		y:    NewRing(BufferSize),
		z:    NewRing(BufferSize),
		ffts: make(map[int]*fourier.FFT),
	}
}

// Push appends one acceleration sample and returns the spectrum of the
// current window. The returned slice is freshly allocated on every call.
func (e *Extractor) Push(x, y, z float64) Spectrum {
	e.x.Push(x)
	e.y.Push(y)
	e.z.Push(z)

	return e.magnitudes(Combine(e.x.Slice(), e.y.Slice(), e.z.Slice()))
}

// Len returns the number of samples currently held per axis.
func (e *Extractor) Len() int {
	return e.x.Len()
}

// Reset discards all buffered samples.
func (e *Extractor) Reset() {
	e.x.Reset()
	e.y.Reset()
	e.z.Reset()
}

// Combine merges the three axes into one signal as x + y + z/3.
//
// Only z is divided by three; this matches the data the gesture models
// were trained on and must not be changed to a plain mean without
// retraining.
func Combine(x, y, z []float64) []float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if len(z) < n {
		n = len(z)
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = x[i] + y[i] + z[i]/3
	}
	return out
}

// Magnitudes returns |X_k|/n for k in [1, n/2) of the discrete Fourier
// transform of signal. Signals shorter than 4 samples yield an empty
// spectrum.
func Magnitudes(signal []float64) Spectrum {
	if len(signal) < 4 {
		return Spectrum{}
	}
	return magnitudesWith(fourier.NewFFT(len(signal)), signal)
}

func (e *Extractor) magnitudes(signal []float64) Spectrum {
	n := len(signal)
	if n < 4 {
		return Spectrum{}
	}

	fft, ok := e.ffts[n]
	if !ok {
		fft = fourier.NewFFT(n)
		e.ffts[n] = fft
	}
	return magnitudesWith(fft, signal)
}

func magnitudesWith(fft *fourier.FFT, signal []float64) Spectrum {
	n := len(signal)
	coeffs := fft.Coefficients(nil, signal)

	out := make(Spectrum, 0, n/2-1)
	for k := 1; k < n/2; k++ {
		out = append(out, cmplx.Abs(coeffs[k])/float64(n))
	}
	return out
}
