// SPDX-License-Identifier: EPL-2.0

package siggen

import (
	"iter"
	"math"
)

// Tone is a table-driven sine generator. It is not safe for concurrent use;
// the streaming goroutine owns it for the lifetime of a session.
type Tone struct {
	amplitude  float64
	frequency  float64
	sampleRate int
	phase      float64

	table []float64
	ptr   int
}

// NewTone builds the single-cycle table
//
//	table[i] = round(amplitude * sin(2π·frequency·i/sampleRate + phase))
//
// for i in [0, floor(sampleRate/frequency)). Table values are whole numbers
// that fit in a 16-bit sample.
func NewTone(amplitude, frequency float64, sampleRate int, phase float64) (*Tone, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if !(frequency > 0) || frequency > float64(sampleRate) || math.IsInf(frequency, 0) {
		return nil, ErrInvalidFrequency
	}
	if !(amplitude >= 0) || amplitude > math.MaxInt16 {
		return nil, ErrInvalidAmplitude
	}

	cycle := int(math.Floor(float64(sampleRate) / frequency))
	table := make([]float64, cycle)
	step := 2 * math.Pi * frequency / float64(sampleRate)
	for i := range table {
		table[i] = math.Round(amplitude * math.Sin(step*float64(i)+phase))
	}

	return &Tone{
		amplitude:  amplitude,
		frequency:  frequency,
		sampleRate: sampleRate,
		phase:      phase,
		table:      table,
	}, nil
}

func (t *Tone) Amplitude() float64 { return t.amplitude }
func (t *Tone) Frequency() float64 { return t.frequency }
func (t *Tone) SampleRate() int    { return t.sampleRate }

// CycleLength is the number of samples in one table cycle.
func (t *Tone) CycleLength() int { return len(t.table) }

// Position is the table index the next sample will be read from.
func (t *Tone) Position() int { return t.ptr }

// EffectiveFrequency is the frequency actually emitted, sampleRate/CycleLength.
func (t *Tone) EffectiveFrequency() float64 {
	return float64(t.sampleRate) / float64(len(t.table))
}

// Table returns a copy of the single-cycle lookup table.
func (t *Tone) Table() []float64 {
	out := make([]float64, len(t.table))
	copy(out, t.table)

	return out
}

// Sine returns the next n samples.
func (t *Tone) Sine(n int) []float64 {
	out := make([]float64, max(n, 0))
	t.Fill(out)

	return out
}

// Fill writes the next len(dst) samples into dst without allocating.
func (t *Tone) Fill(dst []float64) {
	for i := 0; i < len(dst); {
		run := copy(dst[i:], t.table[t.ptr:])
		i += run
		t.ptr += run
		if t.ptr >= len(t.table) {
			t.ptr = 0
		}
	}
}

// Samples is a lazy, infinite view of the tone. Each yielded sample advances
// the same pointer Sine and Fill use.
func (t *Tone) Samples() iter.Seq[float64] {
	return func(yield func(float64) bool) {
		for {
			v := t.table[t.ptr]
			t.ptr++
			if t.ptr == len(t.table) {
				t.ptr = 0
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Reset rewinds the generator to table index 0.
func (t *Tone) Reset() {
	t.ptr = 0
}
