// SPDX-License-Identifier: EPL-2.0

package pcm

// Matrix holds one chunk as Frames rows by Channels columns, stored row-major
// so that Data is already in interleaved order.
type Matrix struct {
	Frames   int
	Channels int
	Data     []float64
}

// NewMatrix allocates a zeroed frames x channels matrix.
func NewMatrix(frames, channels int) *Matrix {
	return &Matrix{
		Frames:   frames,
		Channels: channels,
		Data:     make([]float64, frames*channels),
	}
}

func (m *Matrix) At(frame, channel int) float64 {
	return m.Data[frame*m.Channels+channel]
}

func (m *Matrix) Set(frame, channel int, v float64) {
	m.Data[frame*m.Channels+channel] = v
}

// Column copies one channel into dst, growing it if needed, and returns it.
func (m *Matrix) Column(channel int, dst []float64) []float64 {
	if cap(dst) < m.Frames {
		dst = make([]float64, m.Frames)
	}
	dst = dst[:m.Frames]

	for f := range m.Frames {
		dst[f] = m.Data[f*m.Channels+channel]
	}

	return dst
}

// SetColumn writes src into one channel. Extra values in src are ignored;
// missing ones leave the remaining rows untouched.
func (m *Matrix) SetColumn(channel int, src []float64) {
	n := min(len(src), m.Frames)
	for f := range n {
		m.Data[f*m.Channels+channel] = src[f]
	}
}

// Reset zeroes every sample.
func (m *Matrix) Reset() {
	clear(m.Data)
}
