// SPDX-License-Identifier: EPL-2.0

package pcm

import "encoding/binary"

// Codec converts chunks of a fixed session layout: Frames frames of
// Channels interleaved 16-bit samples.
type Codec struct {
	frames   int
	channels int
}

// NewCodec returns a codec for chunks of frames x channels samples.
func NewCodec(frames, channels int) (*Codec, error) {
	if frames <= 0 || channels <= 0 {
		return nil, ErrInvalidLayout
	}

	return &Codec{frames: frames, channels: channels}, nil
}

func (c *Codec) Frames() int   { return c.frames }
func (c *Codec) Channels() int { return c.channels }

// ChunkBytes is the exact byte length of one full chunk.
func (c *Codec) ChunkBytes() int { return c.frames * c.channels * BytesPerSample }

// Decode widens an interleaved chunk into a new Frames x Channels matrix.
func (c *Codec) Decode(b []byte) (*Matrix, error) {
	m := NewMatrix(c.frames, c.channels)
	if err := c.DecodeInto(m, b); err != nil {
		return nil, err
	}

	return m, nil
}

// DecodeInto is Decode writing into dst, which must already have the codec's shape.
func (c *Codec) DecodeInto(dst *Matrix, b []byte) error {
	if len(b) != c.ChunkBytes() {
		return &ShapeError{Op: "decode", What: "byte length", Want: c.ChunkBytes(), Got: len(b)}
	}
	if dst.Channels != c.channels {
		return &ShapeError{Op: "decode", What: "matrix channels", Want: c.channels, Got: dst.Channels}
	}
	if dst.Frames != c.frames || len(dst.Data) != c.frames*c.channels {
		return &ShapeError{Op: "decode", What: "matrix frames", Want: c.frames, Got: dst.Frames}
	}

	for i := range dst.Data {
		dst.Data[i] = float64(int16(binary.LittleEndian.Uint16(b[i*BytesPerSample:])))
	}

	return nil
}

// Encode flattens m row-major into a new byte slice, truncating each value
// toward zero. Any frame count is accepted; the column count must match.
func (c *Codec) Encode(m *Matrix) ([]byte, error) {
	return c.EncodeInto(nil, m)
}

// EncodeInto is Encode appending into dst[:0]; it reuses dst when it has
// enough capacity and returns the encoded slice.
func (c *Codec) EncodeInto(dst []byte, m *Matrix) ([]byte, error) {
	if m.Channels != c.channels {
		return nil, &ShapeError{Op: "encode", What: "matrix channels", Want: c.channels, Got: m.Channels}
	}
	if len(m.Data) != m.Frames*m.Channels {
		return nil, &ShapeError{Op: "encode", What: "matrix samples", Want: m.Frames * m.Channels, Got: len(m.Data)}
	}

	size := len(m.Data) * BytesPerSample
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]

	for i, v := range m.Data {
		binary.LittleEndian.PutUint16(dst[i*BytesPerSample:], uint16(Truncate(v)))
	}

	return dst, nil
}

// Decode interprets b as frames x channels interleaved samples.
func Decode(b []byte, frames, channels int) (*Matrix, error) {
	c, err := NewCodec(frames, channels)
	if err != nil {
		return nil, err
	}

	return c.Decode(b)
}

// Encode flattens m, requiring it to have exactly channels columns.
func Encode(m *Matrix, channels int) ([]byte, error) {
	if channels <= 0 {
		return nil, ErrInvalidLayout
	}

	return (&Codec{frames: m.Frames, channels: channels}).Encode(m)
}
