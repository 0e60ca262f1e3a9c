// SPDX-License-Identifier: EPL-2.0

package config

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"strings"
	"time"
)

// Backend names.
const (
	BackendPortAudio = "portaudio"
	BackendOto       = "oto"
	BackendClocked   = "clocked"
)

// Session is the configuration of one streaming run.
type Session struct {
	// Devices are device names, the capture device first when one is needed.
	Devices []string

	// Source is the input selector: loopback, internal, cancel or a file path.
	Source string

	SampleRate int
	Channels   int
	Frames     int // frames per chunk

	// Conform resamples and remaps a file source to SampleRate and Channels
	// instead of adopting the file's own format.
	Conform bool
	// Loop restarts a file source at its first frame instead of ending.
	Loop bool

	Amplitude float64
	Frequency float64
	Phase     float64
	// Invert puts the negated tone on the second channel of a stereo generator.
	Invert bool

	Taps     int
	StepSize float64

	CaptureOut string // wave file for the raw captured stream
	RenderOut  string // wave file for the rendered stream

	Backend string
	// ClockInput is a wave file replayed as the capture stream of the
	// clocked backend. Empty means silence.
	ClockInput string

	// Duration bounds the run; zero runs until interrupted or the source ends.
	Duration time.Duration

	RecorderSlots int
}

// Default returns the harness defaults: 16 kHz mono in chunks of 256 frames,
// a 100 Hz tone at 2^12 and a 512-tap filter.
func Default() Session {
	return Session{
		SampleRate:    16000,
		Channels:      1,
		Frames:        256,
		Amplitude:     4096,
		Frequency:     100,
		Invert:        true,
		Taps:          512,
		StepSize:      1e-10,
		Backend:       BackendPortAudio,
		RecorderSlots: 64,
	}
}

func (s Session) Kind() SourceKind { return ParseSource(s.Source) }

// FilePath is the source file, or "" when the source is not a file.
func (s Session) FilePath() string {
	if s.Kind() != SourceFile {
		return ""
	}

	return strings.TrimSpace(s.Source)
}

// Direction reports which stream halves the session opens: the capture side is
// opened for loopback, cancel and whenever the capture is recorded; the
// render side whenever there is a source.
func (s Session) Direction() Direction {
	var d Direction

	kind := s.Kind()
	if kind == SourceLoopback || kind == SourceCancel || s.CaptureOut != "" {
		d |= Input
	}
	if kind != SourceNone {
		d |= Output
	}

	return d
}

// InputDevice is the capture device name, "" for the default device.
func (s Session) InputDevice() string {
	if !s.Direction().HasInput() || len(s.Devices) == 0 {
		return ""
	}

	return s.Devices[0]
}

// OutputDevice is the render device name, "" for the default device.
func (s Session) OutputDevice() string {
	d := s.Direction()
	if !d.HasOutput() {
		return ""
	}

	idx := 0
	if d.HasInput() {
		idx = 1
	}
	if idx >= len(s.Devices) {
		return ""
	}

	return s.Devices[idx]
}

// ChunkDuration is the real-time budget of one chunk.
func (s Session) ChunkDuration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}

	return time.Duration(s.Frames) * time.Second / time.Duration(s.SampleRate)
}

// Validate reports every problem at once.
func (s Session) Validate() error {
	var errs []error

	d := s.Direction()
	if d == 0 {
		errs = append(errs, ErrNoSourceOrDestination)
	}
	if s.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidSampleRate, s.SampleRate))
	}
	if s.Channels <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidChannels, s.Channels))
	}
	if s.Frames <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidFrames, s.Frames))
	}

	kind := s.Kind()
	if kind == SourceGenerator || kind == SourceCancel {
		if !(s.Amplitude >= 0) || s.Amplitude > math.MaxInt16 ||
			!(s.Frequency > 0) || (s.SampleRate > 0 && s.Frequency > float64(s.SampleRate)) {
			errs = append(errs, fmt.Errorf("%w: amplitude %g, frequency %g", ErrInvalidTone, s.Amplitude, s.Frequency))
		}
	}
	if kind == SourceCancel {
		if s.Taps <= 0 || !(s.StepSize > 0) || math.IsInf(s.StepSize, 0) {
			errs = append(errs, fmt.Errorf("%w: taps %d, step %g", ErrInvalidFilter, s.Taps, s.StepSize))
		}
		if s.Channels < 2 {
			errs = append(errs, ErrCancelNeedsStereo)
		}
	}

	switch s.Backend {
	case BackendPortAudio:
		// Loopback needs two distinct devices when named.
		if d == Duplex && len(s.Devices) == 1 {
			errs = append(errs, fmt.Errorf("%w: %s needs a capture and a render device", ErrDevicesMissing, d))
		}
	case BackendOto:
		if d != Output {
			errs = append(errs, fmt.Errorf("%w: %s is output only, session is %s", ErrBackendDirection, s.Backend, d))
		}
	case BackendClocked:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownBackend, s.Backend))
	}

	if s.Duration < 0 {
		errs = append(errs, ErrInvalidDuration)
	}

	return errors.Join(errs...)
}

// RegisterFlags binds the session fields to fs, using the current values as
// defaults.
func (s *Session) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&s.Source, "input", s.Source, "input: 'loopback', 'internal', 'cancel' or an audio file path")
	fs.StringVar(&s.CaptureOut, "capture-out", s.CaptureOut, "wave file to record the captured stream to")
	fs.StringVar(&s.RenderOut, "render-out", s.RenderOut, "wave file to record the rendered stream to")

	fs.IntVar(&s.SampleRate, "rate", s.SampleRate, "sampling rate in Hz (a file source uses its own unless -conform)")
	fs.IntVar(&s.Channels, "channels", s.Channels, "channel count (a file source uses its own unless -conform)")
	fs.IntVar(&s.Frames, "chunk", s.Frames, "frames per chunk")
	fs.BoolVar(&s.Conform, "conform", s.Conform, "resample and remap a file source to -rate and -channels")
	fs.BoolVar(&s.Loop, "loop", s.Loop, "replay a file source from the start when it ends")

	fs.Float64Var(&s.Amplitude, "amplitude", s.Amplitude, "tone amplitude in sample units")
	fs.Float64Var(&s.Frequency, "freq", s.Frequency, "tone frequency in Hz")
	fs.Float64Var(&s.Phase, "phase", s.Phase, "tone phase offset in radians")
	fs.BoolVar(&s.Invert, "invert", s.Invert, "invert the tone on the second channel of a stereo generator")

	fs.IntVar(&s.Taps, "taps", s.Taps, "adaptive filter length")
	fs.Float64Var(&s.StepSize, "mu", s.StepSize, "adaptive filter step size")

	fs.StringVar(&s.Backend, "backend", s.Backend, "audio backend: portaudio, oto or clocked")
	fs.StringVar(&s.ClockInput, "clock-input", s.ClockInput, "wave file replayed as the capture of the clocked backend")
	fs.DurationVar(&s.Duration, "duration", s.Duration, "stop after this long (0 = until interrupted)")
	fs.IntVar(&s.RecorderSlots, "recorder-slots", s.RecorderSlots, "chunks each recorder can queue before dropping")
}
