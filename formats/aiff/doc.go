// SPDX-License-Identifier: EPL-2.0

// Package aiff provides AIFF (Audio Interchange File Format) decoding.
//
// This package uses github.com/go-audio/aiff to decode AIFF files. Samples
// are big-endian on disk; the decoder yields them as native int16 values.
//
// Only 16-bit PCM is supported:
//
//	f, _ := os.Open("take1.aiff")
//	src, err := aiff.Decoder{}.Decode(f)
//	if errors.Is(err, aiff.ErrOnlyPCM16bitSupported) {
//	    // 8, 24 or 32-bit file
//	}
package aiff
