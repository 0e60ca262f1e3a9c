// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"

	"github.com/ik5/duplexpbx/utils"
)

// Resampler streams from src to a target sample rate using cubic interpolation.
// Works on interleaved samples; preserves channel count. At equal rates every
// output frame is the corresponding input frame, bit for bit.
type Resampler struct {
	src      Source
	dstRate  int
	step     float64 // source frames per output frame
	channels int

	// Four consecutive source frames around the output position:
	// hist[0] = t-1, hist[1] = t0, hist[2] = t+1, hist[3] = t+2.
	hist [4][]float64
	pos  float64 // fractional position between hist[1] and hist[2]
	cur  int     // source index of hist[1]

	primed bool
	loaded int // source frames pulled so far
	total  int // source frame count, -1 until the source is exhausted

	in     []int16
	inPos  int
	inLen  int
	srcEOF bool

	// One-pole low-pass applied to source frames when downsampling.
	smooth      bool
	smoothAlpha float64
	smoothState []float64
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()

	r := &Resampler{
		src:      src,
		dstRate:  dstRate,
		step:     float64(src.SampleRate()) / float64(dstRate),
		channels: channels,
		total:    -1,
		in:       make([]int16, 1024*channels),
	}

	if r.step > 1.0 {
		r.smooth = true
		r.smoothAlpha = 0.5
		r.smoothState = make([]float64, channels)
	}
	for i := range r.hist {
		r.hist[i] = make([]float64, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }

func (r *Resampler) Close() error {
	err := r.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// pull copies the next source frame into dst. It returns false once the
// source is exhausted.
func (r *Resampler) pull(dst []float64) (bool, error) {
	stalls := 0
	for r.inPos >= r.inLen {
		if r.srcEOF {
			if r.total < 0 {
				r.total = r.loaded
			}
			return false, nil
		}

		n, err := r.src.ReadPCM(r.in)
		r.inPos, r.inLen = 0, n-n%r.channels
		if err == io.EOF {
			r.srcEOF = true
		} else if err != nil {
			return false, fmt.Errorf("%w", err)
		} else if n == 0 {
			stalls++
			if stalls > maxEmptyReads {
				return false, io.ErrNoProgress
			}
		}
	}

	for c := range r.channels {
		dst[c] = float64(r.in[r.inPos+c])
	}

	if r.smooth {
		if r.loaded == 0 {
			copy(r.smoothState, dst)
		}
		for c := range r.channels {
			dst[c] = r.smoothAlpha*dst[c] + (1-r.smoothAlpha)*r.smoothState[c]
			r.smoothState[c] = dst[c]
		}
	}
	r.inPos += r.channels
	r.loaded++

	return true, nil
}

// fill loads the next source frame into slot, repeating the previous slot
// past the end of the stream.
func (r *Resampler) fill(slot int) error {
	ok, err := r.pull(r.hist[slot])
	if err != nil {
		return err
	}
	if !ok {
		copy(r.hist[slot], r.hist[slot-1])
	}

	return nil
}

func (r *Resampler) prime() (bool, error) {
	ok, err := r.pull(r.hist[1])
	if err != nil || !ok {
		return false, err
	}
	copy(r.hist[0], r.hist[1])

	if err := r.fill(2); err != nil {
		return false, err
	}
	if err := r.fill(3); err != nil {
		return false, err
	}

	r.primed = true

	return true, nil
}

func (r *Resampler) shift() error {
	oldest := r.hist[0]
	r.hist[0], r.hist[1], r.hist[2] = r.hist[1], r.hist[2], r.hist[3]
	r.hist[3] = oldest
	r.cur++

	return r.fill(3)
}

// ReadPCM produces dst samples at the target rate.
// dst length should be a multiple of the channel count.
func (r *Resampler) ReadPCM(dst []int16) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.primed {
		ok, err := r.prime()
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, io.EOF
		}
	}

	written := 0
	frames := len(dst) / r.channels

	for written < frames {
		for r.pos >= 1.0 {
			r.pos -= 1.0
			if err := r.shift(); err != nil {
				return written * r.channels, err
			}
		}

		// Positions past the last source frame would interpolate toward
		// the repeated edge frame.
		if r.total >= 0 && (r.cur >= r.total || (r.cur == r.total-1 && r.pos > 0)) {
			if written == 0 {
				return 0, io.EOF
			}
			return written * r.channels, io.EOF
		}

		out := dst[written*r.channels : (written+1)*r.channels]
		for c := range out {
			out[c] = utils.ClampInt16(utils.CubicInterpolate(
				r.hist[0][c], r.hist[1][c], r.hist[2][c], r.hist[3][c], r.pos))
		}

		written++
		r.pos += r.step
	}

	return written * r.channels, nil
}
