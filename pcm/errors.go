// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"errors"
	"fmt"
)

var (
	// ErrShape is the sentinel every ShapeError unwraps to.
	ErrShape = errors.New("pcm: shape mismatch")

	// ErrInvalidLayout is returned when a codec is built with non-positive dimensions.
	ErrInvalidLayout = errors.New("pcm: frames and channels must be positive")
)

// ShapeError reports a buffer whose size does not agree with the session layout.
// It is fatal for a stream: continuing would silently corrupt the sample order.
type ShapeError struct {
	Op   string // "decode" or "encode"
	What string // the dimension that disagreed
	Want int
	Got  int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("pcm: %s: %s is %d, want %d", e.Op, e.What, e.Got, e.Want)
}

func (e *ShapeError) Unwrap() error { return ErrShape }
