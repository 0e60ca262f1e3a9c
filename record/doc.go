// SPDX-License-Identifier: EPL-2.0

// Package record decouples recorder tees from the real-time audio path.
//
// The streaming goroutine hands each chunk to a Ring with Push, which copies
// the bytes into a preallocated slot using atomics only and never blocks.
// A Recorder goroutine drains the ring at a fixed poll interval and performs
// the actual (blocking) writes to its sink, typically a wav.Writer.
//
// When the writer falls behind and the ring is full, chunks are dropped and
// counted rather than stalling the stream.
package record
