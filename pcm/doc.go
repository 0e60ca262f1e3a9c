// SPDX-License-Identifier: EPL-2.0

// Package pcm converts between interleaved 16-bit PCM byte buffers and
// per-channel sample matrices.
//
// A chunk of N frames with C channels travels between the audio engine and
// the processing code as N*C little-endian signed 16-bit samples, channel
// minor:
//
//	L0 R0 L1 R1 L2 R2 ...
//
// Decode widens those samples into a Matrix of N rows by C columns; Encode
// flattens a Matrix back into bytes, truncating every value toward zero.
// Truncation (not rounding) keeps the output bit-compatible with recordings
// produced by the reference tooling.
//
//	codec, _ := pcm.NewCodec(256, 2)
//	m, err := codec.Decode(in)    // *pcm.ShapeError unless len(in) == 256*2*2
//	ref := m.Column(0, nil)
//	out, err := codec.Encode(m)
//
// Both directions are pure. DecodeInto and EncodeInto reuse caller-owned
// storage and do not allocate, which makes them safe to call from a
// real-time audio callback.
package pcm
