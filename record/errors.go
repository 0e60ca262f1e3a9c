// SPDX-License-Identifier: EPL-2.0

package record

import "errors"

var (
	ErrInvalidRing = errors.New("record: slot count and slot size must be positive")
	ErrNilSink     = errors.New("record: sink is nil")
)
