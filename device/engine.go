// SPDX-License-Identifier: EPL-2.0

package device

import (
	"sync"

	"github.com/ik5/duplexpbx/stream"
)

// Processor is the per-chunk operation an engine drives.
// *stream.Pipeline implements it.
type Processor interface {
	Layout() stream.Layout
	Process(in []byte, frames int, ti stream.TimeInfo) ([]byte, stream.Status, error)
}

// Engine owns the audio clock of a session.
type Engine interface {
	// Start begins calling the processor. It returns once streaming runs.
	Start() error
	// Done is closed when the stream ends on its own or after Stop.
	Done() <-chan struct{}
	// Err is the error that ended the stream, valid after Done is closed.
	Err() error
	// Stop halts the clock and waits until no callback is running.
	Stop() error
	// Close releases the engine. It stops the stream first if needed.
	Close() error
}

// state tracks how a stream ended. finish may be called from the audio
// callback; only the first call counts.
type state struct {
	once sync.Once
	done chan struct{}
	err  error
}

func (s *state) init() { s.done = make(chan struct{}) }

func (s *state) finish(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

func (s *state) Done() <-chan struct{} { return s.done }

func (s *state) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}
