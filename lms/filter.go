// SPDX-License-Identifier: EPL-2.0

package lms

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Filter is an adaptive LMS filter with persistent state. It is not safe for
// concurrent use; one streaming goroutine owns it.
type Filter struct {
	taps int
	mu   float64
	w    []float64

	// ext holds the delay line in ext[:taps-1] followed by the current
	// chunk's reference samples.
	ext []float64
}

// New returns a filter with taps zero weights and a zeroed delay line.
func New(taps int, mu float64, opts ...Option) (*Filter, error) {
	if taps <= 0 {
		return nil, ErrInvalidTaps
	}
	if !(mu > 0) || math.IsInf(mu, 1) {
		return nil, ErrInvalidStepSize
	}

	f := &Filter{
		taps: taps,
		mu:   mu,
		w:    make([]float64, taps),
		ext:  make([]float64, taps-1),
	}
	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Filter) Taps() int          { return f.taps }
func (f *Filter) StepSize() float64 { return f.mu }

// Weights returns a copy of the current weight vector.
func (f *Filter) Weights() []float64 {
	out := make([]float64, f.taps)
	copy(out, f.w)

	return out
}

// DelayLine returns a copy of the L-1 reference samples carried into the next call.
func (f *Filter) DelayLine() []float64 {
	out := make([]float64, f.taps-1)
	copy(out, f.ext[:f.taps-1])

	return out
}

// Reset zeroes the weights and the delay line.
func (f *Filter) Reset() {
	clear(f.w)
	clear(f.ext)
}

// Filter runs one chunk and returns a newly allocated output.
func (f *Filter) Filter(reference, errSignal []float64) ([]float64, error) {
	out := make([]float64, len(reference))
	if err := f.Process(out, reference, errSignal); err != nil {
		return nil, err
	}

	return out, nil
}

// Process filters reference into dst, adapting the weights with errSignal
// one sample at a time. All three slices must have the same length.
func (f *Filter) Process(dst, reference, errSignal []float64) error {
	n := len(reference)
	if len(errSignal) != n || len(dst) != n {
		return fmt.Errorf("%w: reference=%d error=%d output=%d",
			ErrLengthMismatch, n, len(errSignal), len(dst))
	}

	hist := f.taps - 1
	f.grow(n)
	x := f.ext[:hist+n]
	copy(x[hist:], reference)

	for i := range n {
		window := x[i : i+f.taps]
		dst[i] = floats.Dot(f.w, window)
		floats.AddScaled(f.w, -f.mu*errSignal[i], window)
	}

	copy(x[:hist], x[n:n+hist])

	return nil
}

// Reserve preallocates the working buffer for chunks of up to n samples.
func (f *Filter) Reserve(n int) {
	if n > 0 {
		f.grow(n)
	}
}

func (f *Filter) grow(n int) {
	need := f.taps - 1 + n
	if cap(f.ext) >= need {
		f.ext = f.ext[:need]
		return
	}

	ext := make([]float64, need)
	copy(ext, f.ext[:f.taps-1])
	f.ext = ext
}

// MaxStableStep is the conventional LMS step-size bound 2/(taps·power) for a
// reference of mean power power (mean of x²). Step sizes near the bound
// converge fastest but also ring; a tenth of it is a common choice.
func MaxStableStep(taps int, power float64) float64 {
	if taps <= 0 || !(power > 0) {
		return math.Inf(1)
	}

	return 2 / (float64(taps) * power)
}

// SinePower is the mean power of a sine of the given amplitude.
func SinePower(amplitude float64) float64 {
	return amplitude * amplitude / 2
}
