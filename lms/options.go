// SPDX-License-Identifier: EPL-2.0

package lms

// Option configures a Filter.
type Option func(*Filter)

// WithChunkSize preallocates the working buffer for chunks of n samples so
// the first Process call in a real-time callback does not allocate.
func WithChunkSize(n int) Option {
	return func(f *Filter) { f.Reserve(n) }
}
