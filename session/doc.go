// SPDX-License-Identifier: EPL-2.0

// Package session turns a config.Session into a running stream.
//
// Open does every fallible step up front: it loads the file source, builds
// the tone and filter, creates the wave recorders, the pipeline and the
// engine. Run then only starts goroutines and waits.
package session
