// SPDX-License-Identifier: EPL-2.0

package stream

import "errors"

var (
	ErrInvalidLayout  = errors.New("stream: sample rate, channels and frames must be positive")
	ErrNilMode        = errors.New("stream: mode is nil")
	ErrMissingTone    = errors.New("stream: mode requires a tone generator")
	ErrMissingFilter  = errors.New("stream: cancel mode requires an adaptive filter")
	ErrMissingSource  = errors.New("stream: file mode requires a source")
	ErrNeedsStereo    = errors.New("stream: mode requires at least two channels")
	ErrFormatMismatch = errors.New("stream: source format differs from the stream layout")
	ErrRateMismatch   = errors.New("stream: tone sample rate differs from the stream layout")
	ErrNotRewindable  = errors.New("stream: looping file mode requires a rewindable source")
)
