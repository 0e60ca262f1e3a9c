// SPDX-License-Identifier: EPL-2.0

// Package lms implements a least-mean-squares transversal filter for
// interference and echo cancellation between a reference and an error channel.
//
// The filter keeps L weights and a delay line of the L-1 most recent
// reference samples, so a stream filtered chunk by chunk produces exactly the
// same output as the same stream filtered in one call. Within a chunk the
// weights are updated after every sample:
//
//	y[i] = w · x[i : i+L]
//	w    = w - μ·e[i]·x[i : i+L]
//
// where x is the delay line followed by the chunk's reference samples and e
// is the error channel. The loop is sequential by construction.
//
// # Stability
//
// No leakage, clamping or normalisation is applied. The step size must be
// small enough for the expected input power P, roughly μ < 2/(L·P); see
// MaxStableStep. With 16-bit sample magnitudes P is large (a full-scale sine
// has P ≈ 5·10⁸), so useful step sizes are tiny.
package lms
