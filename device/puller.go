// SPDX-License-Identifier: EPL-2.0

package device

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/ik5/duplexpbx/stream"
)

// Puller adapts an output-only processor to io.Reader for players that
// pull bytes at their own pace. Reads of any size are served from whole
// chunks; the processor is called again only when the previous chunk has
// been fully consumed.
type Puller struct {
	proc    Processor
	frames  int
	period  time.Duration
	pending []byte
	chunks  int64

	err   error
	ended atomic.Bool
}

func NewPuller(proc Processor) (*Puller, error) {
	if proc == nil {
		return nil, ErrNilProcessor
	}

	layout := proc.Layout()

	return &Puller{proc: proc, frames: layout.Frames, period: layout.Period()}, nil
}

// Read fills p with rendered bytes. It returns io.EOF once the processor
// has completed or aborted and the last chunk has been read.
func (p *Puller) Read(b []byte) (int, error) {
	n := 0
	for n < len(b) {
		if len(p.pending) == 0 {
			if p.ended.Load() {
				break
			}

			at := time.Duration(p.chunks) * p.period
			out, status, err := p.proc.Process(nil, p.frames, stream.TimeInfo{Current: at, OutputDAC: at})
			p.chunks++
			p.pending = out
			if status != stream.Continue {
				p.err = err
				p.ended.Store(true)
			}
			continue
		}

		k := copy(b[n:], p.pending)
		p.pending = p.pending[k:]
		n += k
	}

	if n == 0 && p.ended.Load() {
		return 0, io.EOF
	}

	return n, nil
}

// Ended reports whether the processor has stopped producing chunks.
func (p *Puller) Ended() bool { return p.ended.Load() }

// Err is the processor error that ended the stream. Valid once Ended is true.
func (p *Puller) Err() error {
	if !p.ended.Load() {
		return nil
	}

	return p.err
}
