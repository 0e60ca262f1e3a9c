// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ik5/duplexpbx/pcm"
)

// Layout is the fixed shape of every chunk in a session.
type Layout struct {
	SampleRate int
	Channels   int
	Frames     int // frames per chunk
}

func (l Layout) Validate() error {
	if l.SampleRate <= 0 || l.Channels <= 0 || l.Frames <= 0 {
		return fmt.Errorf("%w: %+v", ErrInvalidLayout, l)
	}

	return nil
}

// ChunkBytes is the byte length of one full chunk.
func (l Layout) ChunkBytes() int { return l.Frames * l.Channels * pcm.BytesPerSample }

// Period is the playback duration of one chunk, which is also the deadline
// for processing it.
func (l Layout) Period() time.Duration {
	return time.Duration(l.Frames) * time.Second / time.Duration(l.SampleRate)
}

// Tee receives a copy of a chunk without blocking. record.Recorder
// implements it.
type Tee interface {
	Tee(p []byte) bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCaptureTee adds a recorder for the raw captured chunks.
func WithCaptureTee(t Tee) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.captureTees = append(p.captureTees, t)
		}
	}
}

// WithRenderTee adds a recorder for the rendered chunks.
func WithRenderTee(t Tee) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.renderTees = append(p.renderTees, t)
		}
	}
}

// WithClock replaces the monotonic clock used for deadline accounting.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

type latched struct{ err error }

// Pipeline is the per-chunk operation. Process must only be called from one
// goroutine; Stop, Stopped, Err, Stats and Layout are safe from any goroutine.
type Pipeline struct {
	layout  Layout
	mode    Mode
	handler handler
	out     []byte
	budget  time.Duration
	now     func() time.Time

	captureTees []Tee
	renderTees  []Tee

	stats Stats
	stop  atomic.Bool
	done  atomic.Bool
	err   atomic.Pointer[latched]
}

// New builds a pipeline for mode. All per-chunk buffers are allocated here.
func New(layout Layout, mode Mode, opts ...Option) (*Pipeline, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if mode == nil {
		return nil, ErrNilMode
	}

	codec, err := pcm.NewCodec(layout.Frames, layout.Channels)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	h, err := mode.newHandler(layout, codec)
	if err != nil {
		return nil, fmt.Errorf("%s mode: %w", mode, err)
	}

	p := &Pipeline{
		layout:  layout,
		mode:    mode,
		handler: h,
		out:     make([]byte, layout.ChunkBytes()),
		budget:  layout.Period(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

func (p *Pipeline) Layout() Layout { return p.layout }
func (p *Pipeline) Mode() Mode     { return p.mode }

// Stats returns a snapshot of the deadline and health counters.
func (p *Pipeline) Stats() Snapshot { return p.stats.Snapshot() }

// Stop asks the pipeline to end the stream. The next Process call returns
// Complete without rendering.
func (p *Pipeline) Stop() { p.stop.Store(true) }

// Stopped reports whether the stream has ended for any reason.
func (p *Pipeline) Stopped() bool { return p.stop.Load() || p.done.Load() }

// Err returns the error that aborted the stream, if any.
func (p *Pipeline) Err() error {
	if l := p.err.Load(); l != nil {
		return l.err
	}

	return nil
}

func (p *Pipeline) fail(err error) ([]byte, Status, error) {
	p.err.CompareAndSwap(nil, &latched{err: err})
	p.done.Store(true)

	return nil, Abort, err
}

// Process handles one chunk. in is the captured chunk, empty for
// output-only streams; frames is the frame count the engine expects back.
//
// The returned slice is owned by the pipeline and valid until the next call.
// It is a full chunk while the status is Continue, and may be shorter with
// Complete. Layout violations are fatal: the error is latched and the
// status is Abort.
func (p *Pipeline) Process(in []byte, frames int, ti TimeInfo) ([]byte, Status, error) {
	if l := p.err.Load(); l != nil {
		return nil, Abort, l.err
	}
	if p.stop.Load() || p.done.Load() {
		return nil, Complete, nil
	}

	start := p.now()
	p.stats.observeFlags(ti.Flags)

	if frames != p.layout.Frames {
		return p.fail(&pcm.ShapeError{Op: "process", What: "frame count", Want: p.layout.Frames, Got: frames})
	}

	if len(in) > 0 {
		for _, t := range p.captureTees {
			if !t.Tee(in) {
				p.stats.captureDrops.Add(1)
			}
		}
	}

	out, ended, err := p.handler.render(in, p.out)
	if err != nil {
		return p.fail(fmt.Errorf("%s mode: %w", p.mode, err))
	}

	if len(out) > 0 {
		for _, t := range p.renderTees {
			if !t.Tee(out) {
				p.stats.renderDrops.Add(1)
			}
		}
	}

	p.stats.observe(p.now().Sub(start), p.budget)

	if ended {
		p.done.Store(true)
		return out, Complete, nil
	}

	return out, Continue, nil
}
