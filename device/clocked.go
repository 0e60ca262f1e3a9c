// SPDX-License-Identifier: EPL-2.0

package device

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/duplexpbx/stream"
)

// Clocked drives a processor from a software ticker. Capture chunks are
// read from an io.Reader and rendered chunks are written to an io.Writer.
// Without a capture reader the processor sees an output-only stream.
type Clocked struct {
	state

	proc    Processor
	layout  stream.Layout
	capture io.Reader
	render  io.Writer
	period  time.Duration
	in      []byte

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	exited   chan struct{}
}

// ClockedOption configures a Clocked engine.
type ClockedOption func(*Clocked)

// WithCapture sets the reader that supplies captured chunks. The stream
// ends when it is exhausted; a partial last chunk is zero padded.
func WithCapture(r io.Reader) ClockedOption {
	return func(c *Clocked) { c.capture = r }
}

// WithRender sets the writer that receives rendered chunks.
func WithRender(w io.Writer) ClockedOption {
	return func(c *Clocked) {
		if w != nil {
			c.render = w
		}
	}
}

// WithPeriod overrides the tick interval. Zero runs as fast as the
// processor allows.
func WithPeriod(d time.Duration) ClockedOption {
	return func(c *Clocked) {
		if d >= 0 {
			c.period = d
		}
	}
}

// NewClocked returns a stopped engine ticking at the processor's chunk
// period.
func NewClocked(proc Processor, opts ...ClockedOption) (*Clocked, error) {
	if proc == nil {
		return nil, ErrNilProcessor
	}

	layout := proc.Layout()
	c := &Clocked{
		proc:   proc,
		layout: layout,
		render: io.Discard,
		period: layout.Period(),
		stopCh: make(chan struct{}),
		exited: make(chan struct{}),
	}
	c.init()
	for _, opt := range opts {
		opt(c)
	}
	if c.capture != nil {
		c.in = make([]byte, layout.ChunkBytes())
	}

	return c, nil
}

func (c *Clocked) Start() error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	go c.loop()

	return nil
}

func (c *Clocked) loop() {
	defer close(c.exited)

	var tick <-chan time.Time
	if c.period > 0 {
		t := time.NewTicker(c.period)
		defer t.Stop()
		tick = t.C
	}

	start := time.Now()
	for {
		select {
		case <-c.stopCh:
			c.finish(nil)
			return
		default:
		}

		now := time.Since(start)
		ti := stream.TimeInfo{InputADC: now, Current: now, OutputDAC: now + c.period}

		var in []byte
		last := false
		if c.capture != nil {
			n, err := io.ReadFull(c.capture, c.in)
			switch {
			case err == nil:
			case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
				if n == 0 {
					c.finish(nil)
					return
				}
				clear(c.in[n:])
				ti.Flags |= stream.InputUnderflow
				last = true
			default:
				c.finish(fmt.Errorf("reading capture: %w", err))
				return
			}
			in = c.in
		}

		out, status, err := c.proc.Process(in, c.layout.Frames, ti)
		if len(out) > 0 {
			if _, werr := c.render.Write(out); werr != nil {
				c.finish(fmt.Errorf("writing render: %w", werr))
				return
			}
		}

		switch {
		case status == stream.Abort:
			c.finish(err)
			return
		case status == stream.Complete || last:
			c.finish(nil)
			return
		}

		if tick != nil {
			select {
			case <-c.stopCh:
				c.finish(nil)
				return
			case <-tick:
			}
		}
	}
}

func (c *Clocked) Stop() error {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if c.started.Load() {
		<-c.exited
	} else {
		c.finish(nil)
	}

	return nil
}

func (c *Clocked) Close() error { return c.Stop() }
