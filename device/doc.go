// SPDX-License-Identifier: EPL-2.0

// Package device drives a stream.Pipeline from an audio clock.
//
// Three engines are provided. PortAudio opens duplex, input-only or
// output-only streams on sound cards and calls the pipeline from the
// PortAudio callback. Oto is an output-only engine that pulls chunks
// through an io.Reader. Clocked runs the pipeline from a software ticker
// with capture and render on ordinary readers and writers, which is what
// headless runs and tests use.
//
// The hardware engines are excluded by the headless build tag; their
// constructors then return ErrBackendUnavailable.
package device
