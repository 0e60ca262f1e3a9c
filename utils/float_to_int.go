// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// ClampInt16 rounds x to the nearest integer and saturates it to the int16 range.
// NaN maps to silence.
func ClampInt16(x float64) int16 {
	switch {
	case math.IsNaN(x):
		return 0
	case x >= math.MaxInt16:
		return math.MaxInt16
	case x <= math.MinInt16:
		return math.MinInt16
	}

	return int16(math.Round(x))
}

// SampleToInt16 converts a normalized float sample in [-1,1] to 16-bit PCM.
// Full scale is 32768 so that -1 maps to math.MinInt16; +1 saturates to math.MaxInt16.
func SampleToInt16(x float32) int16 {
	return ClampInt16(float64(x) * 32768.0)
}
