// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"sync/atomic"
	"time"
)

// Stats are deadline and health counters updated by the streaming goroutine
// and read by anyone.
type Stats struct {
	chunks          atomic.Uint64
	overruns        atomic.Uint64
	totalNanos      atomic.Int64
	maxNanos        atomic.Int64
	inputUnderflow  atomic.Uint64
	inputOverflow   atomic.Uint64
	outputUnderflow atomic.Uint64
	outputOverflow  atomic.Uint64
	captureDrops    atomic.Uint64
	renderDrops     atomic.Uint64
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Chunks          uint64
	Overruns        uint64 // chunks whose processing exceeded the chunk duration
	Total           time.Duration
	Max             time.Duration
	InputUnderflow  uint64
	InputOverflow   uint64
	OutputUnderflow uint64
	OutputOverflow  uint64
	CaptureDrops    uint64 // chunks a capture recorder could not queue
	RenderDrops     uint64 // chunks a render recorder could not queue
}

// Mean processing time per chunk.
func (s Snapshot) Mean() time.Duration {
	if s.Chunks == 0 {
		return 0
	}

	return s.Total / time.Duration(s.Chunks)
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Chunks:          s.chunks.Load(),
		Overruns:        s.overruns.Load(),
		Total:           time.Duration(s.totalNanos.Load()),
		Max:             time.Duration(s.maxNanos.Load()),
		InputUnderflow:  s.inputUnderflow.Load(),
		InputOverflow:   s.inputOverflow.Load(),
		OutputUnderflow: s.outputUnderflow.Load(),
		OutputOverflow:  s.outputOverflow.Load(),
		CaptureDrops:    s.captureDrops.Load(),
		RenderDrops:     s.renderDrops.Load(),
	}
}

func (s *Stats) observeFlags(f Flags) {
	if f&InputUnderflow != 0 {
		s.inputUnderflow.Add(1)
	}
	if f&InputOverflow != 0 {
		s.inputOverflow.Add(1)
	}
	if f&OutputUnderflow != 0 {
		s.outputUnderflow.Add(1)
	}
	if f&OutputOverflow != 0 {
		s.outputOverflow.Add(1)
	}
}

// observe records one processed chunk. Only the streaming goroutine writes
// maxNanos, so a plain load and store is enough.
func (s *Stats) observe(elapsed, budget time.Duration) {
	s.chunks.Add(1)
	s.totalNanos.Add(int64(elapsed))
	if int64(elapsed) > s.maxNanos.Load() {
		s.maxNanos.Store(int64(elapsed))
	}
	if elapsed > budget {
		s.overruns.Add(1)
	}
}
