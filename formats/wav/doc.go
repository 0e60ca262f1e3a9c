// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes 16-bit PCM wave files on top of
// github.com/go-audio/wav.
//
// Decoder produces an audio.Source that yields the file's samples unchanged:
//
//	f, _ := os.Open("take1.wav")
//	src, err := wav.Decoder{}.Decode(f)
//
// Writer is a streaming sink for raw interleaved little-endian bytes, which
// is what a duplex stream captures and renders. It implements io.WriteCloser
// so a recorder can drain chunks into it:
//
//	w, err := wav.Create("mics.wav", 16000, 2)
//	w.Write(chunk)
//	w.Close() // patches the header sizes
//
// Only PCM 16-bit is supported; other layouts fail with
// ErrOnlyPCM16bitSupported.
package wav
