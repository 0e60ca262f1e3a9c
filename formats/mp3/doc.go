// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1/2 Layer III files using
// github.com/hajimehoshi/go-mp3.
//
// The decoder always yields interleaved 16-bit stereo at the stream's sample
// rate. Use audio.Conform to reach another rate or channel count.
package mp3
