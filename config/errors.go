// SPDX-License-Identifier: EPL-2.0

package config

import "errors"

var (
	ErrNoSourceOrDestination = errors.New("neither a source nor a capture recording is configured")
	ErrDevicesMissing        = errors.New("not enough device names for the configured direction")
	ErrInvalidSampleRate     = errors.New("sample rate must be positive")
	ErrInvalidChannels       = errors.New("channel count must be positive")
	ErrInvalidFrames         = errors.New("chunk size must be positive")
	ErrInvalidTone           = errors.New("tone amplitude must be in [0, 32767] and frequency in (0, rate]")
	ErrInvalidFilter         = errors.New("filter taps and step size must be positive")
	ErrCancelNeedsStereo     = errors.New("cancel mode needs at least two channels")
	ErrUnknownBackend        = errors.New("unknown audio backend")
	ErrBackendDirection      = errors.New("backend does not support the configured direction")
	ErrInvalidDuration       = errors.New("duration must not be negative")
)
