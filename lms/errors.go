// SPDX-License-Identifier: EPL-2.0

package lms

import "errors"

var (
	ErrInvalidTaps     = errors.New("lms: tap count must be positive")
	ErrInvalidStepSize = errors.New("lms: step size must be a positive finite number")

	// ErrLengthMismatch is returned when the reference, error and output
	// buffers of one call do not have the same length.
	ErrLengthMismatch = errors.New("lms: reference and error lengths differ")
)
