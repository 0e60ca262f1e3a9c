// SPDX-License-Identifier: EPL-2.0

package siggen

import "errors"

var (
	ErrInvalidSampleRate = errors.New("siggen: sample rate must be positive")
	ErrInvalidFrequency  = errors.New("siggen: frequency must be positive and not above the sample rate")
	ErrInvalidAmplitude  = errors.New("siggen: amplitude must be within [0, 32767]")
)
