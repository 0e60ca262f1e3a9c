// SPDX-License-Identifier: EPL-2.0

package device

import "errors"

var (
	ErrNilProcessor         = errors.New("nil processor")
	ErrAlreadyStarted       = errors.New("engine already started")
	ErrDeviceNotFound       = errors.New("audio device not found")
	ErrBackendUnavailable   = errors.New("audio backend not available in this build")
	ErrUnsupportedDirection = errors.New("direction not supported by engine")
)
