// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"strings"
	"time"
)

// Status tells the engine what to do after rendering a chunk.
type Status int

const (
	// Continue asks for the next chunk.
	Continue Status = iota
	// Complete renders the returned chunk, then stops the stream.
	Complete
	// Abort stops the stream immediately; Err holds the cause.
	Abort
)

func (s Status) String() string {
	switch s {
	case Continue:
		return "continue"
	case Complete:
		return "complete"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// Flags are the engine's per-callback condition bits.
type Flags uint32

const (
	InputUnderflow Flags = 1 << iota
	InputOverflow
	OutputUnderflow
	OutputOverflow
	PrimingOutput
)

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}

	names := []string{"input-underflow", "input-overflow", "output-underflow", "output-overflow", "priming-output"}
	var parts []string
	for i, name := range names {
		if f&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}

	return strings.Join(parts, "|")
}

// TimeInfo is the timing metadata passed with each chunk. Times are on the
// engine's stream clock.
type TimeInfo struct {
	InputADC  time.Duration // capture time of the first input frame
	Current   time.Duration // time the callback was invoked
	OutputDAC time.Duration // playback time of the first output frame
	Flags     Flags
}
