// SPDX-License-Identifier: EPL-2.0

// Package siggen generates phase-continuous test tones for the stream pipeline.
//
// A Tone precomputes one cycle of a sinusoid into a lookup table of
// floor(sampleRate/frequency) samples and then replays that table forever,
// keeping a read pointer between calls:
//
//	tone, _ := siggen.NewTone(4096, 100, 16000, 0) // 160-sample cycle
//	a := tone.Sine(256) // table[0:160] + table[0:96]
//	b := tone.Sine(256) // continues at table[96]
//
// Because the cycle length is truncated to a whole number of samples the
// emitted frequency is sampleRate/cycleLength, a deterministic rational
// approximation of the requested one. That is intended: the same call
// history always reproduces the same samples.
package siggen
