// SPDX-License-Identifier: EPL-2.0

// Package duplexpbx is a real-time duplex audio test harness.
//
// A session captures fixed-size chunks of interleaved 16-bit PCM from an
// input device, transforms each chunk according to a source mode and hands
// the result to an output device before the next chunk arrives. The modes
// are:
//
//   - passthrough: captured bytes are played back unchanged (loopback)
//   - generator: a table-driven sine tone, optionally with a phase-inverted
//     second channel
//   - file: a preloaded audio file, played until it runs out
//   - cancel: channel 0 of the capture is the reference and channel 1 the
//     error signal of an LMS adaptive filter; the tone and the filter output
//     are played back side by side
//
// The captured and rendered streams can be teed to wave files without
// blocking the real-time path.
//
// # Packages
//
//   - pcm: frame codec between raw bytes and sample matrices
//   - siggen: tone generator
//   - lms: adaptive filter
//   - stream: the per-chunk pipeline and its modes
//   - record: lock-free recorder tees
//   - device: audio engines (PortAudio, oto, and a software clock)
//   - config, session: setup and lifecycle
//   - audio, formats/*: file sources used by the file mode
//
// # Loading files
//
// This package offers the decoder registry and loaders used by the file mode:
//
//	buf, err := duplexpbx.LoadFile("take1.mp3", 16000, 2)
//	// buf is an in-memory audio.Source at 16 kHz stereo
package duplexpbx
