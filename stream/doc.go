// SPDX-License-Identifier: EPL-2.0

// Package stream implements the per-chunk operation an audio engine calls
// once for every captured chunk.
//
// A Pipeline is built once from a Layout (sample rate, channels, frames per
// chunk) and a Mode. Modes form a closed set:
//
//   - Passthrough returns the captured chunk unchanged.
//   - Generator renders a tone on every channel, optionally inverting the
//     second channel.
//   - FilePlayback renders the next frames of a preloaded source and ends
//     the stream with a short chunk.
//   - Cancel runs the LMS filter with channel 0 of the capture as reference
//     and channel 1 as error, and renders the tone on channel 0 next to the
//     filter output on channel 1.
//
// Process never blocks, never logs, and after the first call does not
// allocate. Recorder tees are handed copies through lock-free rings.
// The controller may call Stop, Stats and Err from another goroutine; those
// touch atomics only.
package stream
