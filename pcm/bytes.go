// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"encoding/binary"
	"math"
)

// BytesPerSample is the width of one 16-bit sample on the wire.
const BytesPerSample = 2

// PutInt16s writes src into dst as little-endian samples and returns the
// number of bytes written. dst must hold at least len(src)*2 bytes.
func PutInt16s(dst []byte, src []int16) int {
	for i, s := range src {
		binary.LittleEndian.PutUint16(dst[i*BytesPerSample:], uint16(s))
	}

	return len(src) * BytesPerSample
}

// Int16s reads little-endian samples from src into dst and returns how many
// samples were read. A trailing odd byte is ignored.
func Int16s(dst []int16, src []byte) int {
	n := min(len(dst), len(src)/BytesPerSample)
	for i := range n {
		dst[i] = int16(binary.LittleEndian.Uint16(src[i*BytesPerSample:]))
	}

	return n
}

// Truncate converts v to a 16-bit sample by truncation toward zero.
// Values outside the int16 range wrap modulo 2^16 like a C cast through a
// wider integer; NaN and values beyond the int64 range become 0.
func Truncate(v float64) int16 {
	if math.IsNaN(v) || v >= math.MaxInt64 || v <= math.MinInt64 {
		return 0
	}

	return int16(int64(v))
}
