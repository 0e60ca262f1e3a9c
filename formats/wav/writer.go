// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Writer streams interleaved little-endian 16-bit PCM bytes into a wave file.
// The header sizes are patched on Close, so the destination must be seekable.
// A Writer is not safe for concurrent use.
type Writer struct {
	enc    *wav.Encoder
	closer io.Closer
	buf    *goaudio.IntBuffer
	carry  []byte // odd trailing byte of the previous Write
	frames int64
	closed bool
}

// NewWriter starts a wave stream on w. Closing the Writer leaves w open.
func NewWriter(w io.WriteSeeker, sampleRate, channels int) (*Writer, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, ErrInvalidWriterFormat
	}

	return &Writer{
		enc: wav.NewEncoder(w, sampleRate, 16, channels, formatPCM),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
		carry: make([]byte, 0, 1),
	}, nil
}

// Create opens path for writing and returns a Writer that owns the file.
func Create(path string, sampleRate, channels int) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	w, err := NewWriter(f, sampleRate, channels)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f

	return w, nil
}

func (w *Writer) SampleRate() int { return w.buf.Format.SampleRate }
func (w *Writer) Channels() int   { return w.buf.Format.NumChannels }

// Frames is the number of whole frames written so far.
func (w *Writer) Frames() int64 { return w.frames }

// Write appends raw PCM bytes. It always consumes all of p unless the
// encoder fails.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrWriterClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	total := len(p)
	if len(w.carry) == 1 {
		w.appendSample(int16(binary.LittleEndian.Uint16([]byte{w.carry[0], p[0]})))
		w.carry = w.carry[:0]
		p = p[1:]
	}

	for len(p) >= 2 {
		w.appendSample(int16(binary.LittleEndian.Uint16(p)))
		p = p[2:]
	}
	if len(p) == 1 {
		w.carry = append(w.carry, p[0])
	}

	if err := w.flush(); err != nil {
		return 0, err
	}

	return total, nil
}

// WriteSamples appends interleaved samples.
func (w *Writer) WriteSamples(samples []int16) error {
	if w.closed {
		return ErrWriterClosed
	}

	for _, s := range samples {
		w.appendSample(s)
	}

	return w.flush()
}

func (w *Writer) appendSample(s int16) {
	w.buf.Data = append(w.buf.Data, int(s))
}

// flush hands whole frames to the encoder and keeps any partial frame.
func (w *Writer) flush() error {
	channels := w.Channels()
	whole := len(w.buf.Data) - len(w.buf.Data)%channels
	if whole == 0 {
		return nil
	}

	rest := w.buf.Data[whole:]
	w.buf.Data = w.buf.Data[:whole]
	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("writing wav data: %w", err)
	}
	w.frames += int64(whole / channels)

	n := copy(w.buf.Data, rest)
	w.buf.Data = w.buf.Data[:n]

	return nil
}

// Close finalizes the header. Partial frames still pending are discarded.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var err error
	if w.frames == 0 {
		// Forces the header out so an empty recording is still a valid file.
		w.buf.Data = w.buf.Data[:0]
		err = w.enc.Write(w.buf)
	}
	if err == nil {
		err = w.enc.Close()
	}
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("closing wav writer: %w", err)
	}

	return nil
}
