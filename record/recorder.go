// SPDX-License-Identifier: EPL-2.0

package record

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultSlots        = 64
	DefaultPollInterval = 5 * time.Millisecond
)

// Recorder drains a Ring into a sink from its own goroutine.
type Recorder struct {
	name     string
	ring     *Ring
	sink     io.WriteCloser
	interval time.Duration

	written atomic.Uint64
	chunks  atomic.Uint64
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithPollInterval sets how often the writer goroutine checks the ring.
func WithPollInterval(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithName labels the recorder in log entries.
func WithName(name string) Option {
	return func(r *Recorder) { r.name = name }
}

// New returns a recorder whose ring holds slots chunks of up to chunkBytes
// bytes each. The recorder owns sink and closes it when Run returns.
func New(sink io.WriteCloser, slots, chunkBytes int, opts ...Option) (*Recorder, error) {
	if sink == nil {
		return nil, ErrNilSink
	}

	ring, err := NewRing(slots, chunkBytes)
	if err != nil {
		return nil, err
	}

	r := &Recorder{
		name:     "recorder",
		ring:     ring,
		sink:     sink,
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

func (r *Recorder) Name() string { return r.name }

// Tee queues a copy of p for writing. It is safe to call from the real-time
// goroutine; it returns false when the chunk had to be dropped.
func (r *Recorder) Tee(p []byte) bool { return r.ring.Push(p) }

// Dropped counts chunks lost because the writer fell behind.
func (r *Recorder) Dropped() uint64 { return r.ring.Dropped() }

// Written is the number of bytes handed to the sink.
func (r *Recorder) Written() uint64 { return r.written.Load() }

// Chunks is the number of chunks handed to the sink.
func (r *Recorder) Chunks() uint64 { return r.chunks.Load() }

// Run writes queued chunks until ctx is done, then drains what is left and
// closes the sink. The first write error stops the loop.
func (r *Recorder) Run(ctx context.Context) (err error) {
	logrus.WithFields(logrus.Fields{
		"function": "Recorder.Run",
		"recorder": r.name,
		"slots":    r.ring.Cap(),
		"interval": r.interval,
	}).Debug("Recorder started")

	defer func() {
		if cerr := r.sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", r.name, cerr)
		}

		logrus.WithFields(logrus.Fields{
			"function": "Recorder.Run",
			"recorder": r.name,
			"chunks":   r.chunks.Load(),
			"bytes":    r.written.Load(),
			"dropped":  r.ring.Dropped(),
		}).Info("Recorder stopped")
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.drain(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return r.drain()
		case <-ticker.C:
		}
	}
}

func (r *Recorder) drain() error {
	for {
		chunk, ok := r.ring.Front()
		if !ok {
			return nil
		}

		n, err := r.sink.Write(chunk)
		r.written.Add(uint64(n))
		r.ring.Release()
		if err != nil {
			return fmt.Errorf("writing %s: %w", r.name, err)
		}
		r.chunks.Add(1)
	}
}
