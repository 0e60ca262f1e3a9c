// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
)

// PCMBuffer is an in-memory Source over interleaved 16-bit samples.
// Reading never blocks on I/O, which makes it suitable as the FILE source of
// a real-time stream once the whole file has been loaded at setup time.
type PCMBuffer struct {
	sampleRate int
	channels   int
	samples    []int16
	pos        int
}

// NewPCMBuffer wraps samples without copying. A trailing partial frame is dropped.
func NewPCMBuffer(sampleRate, channels int, samples []int16) (*PCMBuffer, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, ErrInvalidFormat
	}

	whole := len(samples) - len(samples)%channels

	return &PCMBuffer{
		sampleRate: sampleRate,
		channels:   channels,
		samples:    samples[:whole],
	}, nil
}

func (b *PCMBuffer) SampleRate() int { return b.sampleRate }
func (b *PCMBuffer) Channels() int   { return b.channels }
func (b *PCMBuffer) Close() error    { return nil }

// Frames is the total number of frames held.
func (b *PCMBuffer) Frames() int { return len(b.samples) / b.channels }

// Remaining is the number of frames not yet read.
func (b *PCMBuffer) Remaining() int { return (len(b.samples) - b.pos) / b.channels }

// Samples exposes the underlying interleaved samples.
func (b *PCMBuffer) Samples() []int16 { return b.samples }

// Rewind restarts reading from the first frame.
func (b *PCMBuffer) Rewind() { b.pos = 0 }

func (b *PCMBuffer) ReadPCM(dst []int16) (int, error) {
	if len(dst)%b.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if b.pos >= len(b.samples) {
		return 0, io.EOF
	}

	n := copy(dst, b.samples[b.pos:])
	b.pos += n

	if b.pos >= len(b.samples) {
		return n, io.EOF
	}

	return n, nil
}

const maxEmptyReads = 100

// ReadAll drains src into a single interleaved slice.
func ReadAll(src Source) ([]int16, error) {
	channels := src.Channels()
	if channels <= 0 {
		return nil, ErrInvalidFormat
	}

	// Start with about two seconds and let append grow it.
	out := make([]int16, 0, src.SampleRate()*channels*2)
	buf := make([]int16, 4096*channels)
	stalls := 0

	for {
		n, err := src.ReadPCM(buf)
		out = append(out, buf[:n]...)

		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w", err)
		}

		if n == 0 {
			stalls++
			if stalls > maxEmptyReads {
				return nil, io.ErrNoProgress
			}
			continue
		}
		stalls = 0
	}

	return out, nil
}

// Load drains src into a PCMBuffer with the same format.
func Load(src Source) (*PCMBuffer, error) {
	samples, err := ReadAll(src)
	if err != nil {
		return nil, err
	}

	return NewPCMBuffer(src.SampleRate(), src.Channels(), samples)
}
