// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"fmt"
	"io"

	"github.com/ik5/duplexpbx/audio"
	"github.com/ik5/duplexpbx/lms"
	"github.com/ik5/duplexpbx/pcm"
	"github.com/ik5/duplexpbx/siggen"
)

// Mode selects what a Pipeline renders. The set of modes is closed: only the
// types in this package implement it, and each one provides its own handler.
type Mode interface {
	fmt.Stringer
	newHandler(l Layout, codec *pcm.Codec) (handler, error)
}

// handler renders one chunk into out, which has room for a full chunk.
// It returns the rendered bytes and whether the stream has ended.
type handler interface {
	render(in, out []byte) ([]byte, bool, error)
}

var (
	_ Mode = Passthrough{}
	_ Mode = Generator{}
	_ Mode = FilePlayback{}
	_ Mode = Cancel{}
)

// Passthrough renders the captured chunk unchanged. Captured chunks must be
// full; a short one is a fatal ShapeError like any other layout violation.
type Passthrough struct{}

func (Passthrough) String() string { return "passthrough" }

func (Passthrough) newHandler(_ Layout, codec *pcm.Codec) (handler, error) {
	return &passthroughHandler{chunkBytes: codec.ChunkBytes()}, nil
}

type passthroughHandler struct {
	chunkBytes int
}

func (h *passthroughHandler) render(in, out []byte) ([]byte, bool, error) {
	if len(in) != h.chunkBytes {
		return nil, false, &pcm.ShapeError{Op: "passthrough", What: "byte length", Want: h.chunkBytes, Got: len(in)}
	}

	return out[:copy(out, in)], false, nil
}

// Generator renders Tone on every channel. With Invert set the second
// channel carries the negated tone.
type Generator struct {
	Tone   *siggen.Tone
	Invert bool
}

func (g Generator) String() string {
	if g.Invert {
		return "generator(inverted)"
	}

	return "generator"
}

func (g Generator) newHandler(l Layout, codec *pcm.Codec) (handler, error) {
	if g.Tone == nil {
		return nil, ErrMissingTone
	}
	if g.Tone.SampleRate() != l.SampleRate {
		return nil, fmt.Errorf("%w: tone %d Hz, stream %d Hz", ErrRateMismatch, g.Tone.SampleRate(), l.SampleRate)
	}
	if g.Invert && l.Channels < 2 {
		return nil, ErrNeedsStereo
	}

	return &generatorHandler{
		tone:     g.Tone,
		invert:   g.Invert,
		codec:    codec,
		buf:      make([]float64, l.Frames),
		inverted: make([]float64, l.Frames),
		m:        pcm.NewMatrix(l.Frames, l.Channels),
	}, nil
}

type generatorHandler struct {
	tone     *siggen.Tone
	invert   bool
	codec    *pcm.Codec
	buf      []float64
	inverted []float64
	m        *pcm.Matrix
}

func (h *generatorHandler) render(_, out []byte) ([]byte, bool, error) {
	h.tone.Fill(h.buf)

	for c := range h.m.Channels {
		h.m.SetColumn(c, h.buf)
	}
	if h.invert {
		for i, v := range h.buf {
			h.inverted[i] = -v
		}
		h.m.SetColumn(1, h.inverted)
	}

	b, err := h.codec.EncodeInto(out, h.m)
	return b, false, err
}

// FilePlayback renders Source frame by frame. Source must already have the
// stream's sample rate and channel count; an in-memory audio.PCMBuffer keeps
// reads free of I/O. The chunk in which the source runs out is short and
// ends the stream.
//
// With Loop set a source that can rewind (audio.PCMBuffer can) restarts at
// its first frame instead, and the stream only ends when stopped.
type FilePlayback struct {
	Source audio.Source
	Loop   bool
}

// Rewinder is a source that can restart from its first frame.
type Rewinder interface {
	Rewind()
}

func (f FilePlayback) String() string {
	if f.Loop {
		return "file(loop)"
	}

	return "file"
}

func (f FilePlayback) newHandler(l Layout, _ *pcm.Codec) (handler, error) {
	if f.Source == nil {
		return nil, ErrMissingSource
	}
	if f.Source.SampleRate() != l.SampleRate || f.Source.Channels() != l.Channels {
		return nil, fmt.Errorf("%w: source %d Hz %d ch, stream %d Hz %d ch", ErrFormatMismatch,
			f.Source.SampleRate(), f.Source.Channels(), l.SampleRate, l.Channels)
	}

	h := &fileHandler{
		src:     f.Source,
		samples: make([]int16, l.Frames*l.Channels),
	}
	if f.Loop {
		r, ok := f.Source.(Rewinder)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrNotRewindable, f.Source)
		}
		h.rewind = r
	}

	return h, nil
}

type fileHandler struct {
	src     audio.Source
	samples []int16
	rewind  Rewinder
}

func (h *fileHandler) render(_, out []byte) ([]byte, bool, error) {
	filled := 0
	ended := false
	sinceRewind := -1

	for filled < len(h.samples) {
		n, err := h.src.ReadPCM(h.samples[filled:])
		filled += n
		if sinceRewind >= 0 {
			sinceRewind += n
		}
		if err == io.EOF && h.rewind != nil && sinceRewind != 0 {
			// An empty source would rewind forever.
			h.rewind.Rewind()
			sinceRewind = 0
			continue
		}
		if err == io.EOF {
			ended = true
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("reading file source: %w", err)
		}
		if n == 0 {
			// A source that makes no progress is treated as exhausted.
			ended = true
			break
		}
	}

	n := pcm.PutInt16s(out, h.samples[:filled])

	return out[:n], ended || filled < len(h.samples), nil
}

// Cancel runs Filter with channel 0 of the capture as reference and channel
// 1 as error signal. The rendered chunk carries Tone on channel 0 and the
// filter output on channel 1; any further channels are silent.
type Cancel struct {
	Filter *lms.Filter
	Tone   *siggen.Tone
}

func (Cancel) String() string { return "cancel" }

func (c Cancel) newHandler(l Layout, codec *pcm.Codec) (handler, error) {
	if c.Filter == nil {
		return nil, ErrMissingFilter
	}
	if c.Tone == nil {
		return nil, ErrMissingTone
	}
	if c.Tone.SampleRate() != l.SampleRate {
		return nil, fmt.Errorf("%w: tone %d Hz, stream %d Hz", ErrRateMismatch, c.Tone.SampleRate(), l.SampleRate)
	}
	if l.Channels < 2 {
		return nil, ErrNeedsStereo
	}

	c.Filter.Reserve(l.Frames)

	return &cancelHandler{
		filter: c.Filter,
		tone:   c.Tone,
		codec:  codec,
		in:     pcm.NewMatrix(l.Frames, l.Channels),
		out:    pcm.NewMatrix(l.Frames, l.Channels),
		ref:    make([]float64, l.Frames),
		err:    make([]float64, l.Frames),
		y:      make([]float64, l.Frames),
		tbuf:   make([]float64, l.Frames),
	}, nil
}

type cancelHandler struct {
	filter  *lms.Filter
	tone    *siggen.Tone
	codec   *pcm.Codec
	in, out *pcm.Matrix
	ref     []float64
	err     []float64
	y       []float64
	tbuf    []float64
}

func (h *cancelHandler) render(in, out []byte) ([]byte, bool, error) {
	if err := h.codec.DecodeInto(h.in, in); err != nil {
		return nil, false, err
	}

	h.ref = h.in.Column(0, h.ref)
	h.err = h.in.Column(1, h.err)

	if err := h.filter.Process(h.y, h.ref, h.err); err != nil {
		return nil, false, err
	}

	h.tone.Fill(h.tbuf)
	h.out.SetColumn(0, h.tbuf)
	h.out.SetColumn(1, h.y)

	b, err := h.codec.EncodeInto(out, h.out)
	return b, false, err
}
