// SPDX-License-Identifier: EPL-2.0

package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/duplexpbx"
	"github.com/ik5/duplexpbx/audio"
	"github.com/ik5/duplexpbx/config"
	"github.com/ik5/duplexpbx/device"
	"github.com/ik5/duplexpbx/formats/wav"
	"github.com/ik5/duplexpbx/lms"
	"github.com/ik5/duplexpbx/pcm"
	"github.com/ik5/duplexpbx/record"
	"github.com/ik5/duplexpbx/siggen"
	"github.com/ik5/duplexpbx/stream"
)

// EngineFactory builds the engine that drives proc.
type EngineFactory func(proc device.Processor, cfg config.Session) (device.Engine, error)

// Option configures Open.
type Option func(*Session)

// WithEngineFactory replaces the engine chosen by cfg.Backend.
func WithEngineFactory(f EngineFactory) Option {
	return func(s *Session) {
		if f != nil {
			s.factory = f
		}
	}
}

// WithRender sends the clocked backend's rendered chunks to w instead of
// discarding them.
func WithRender(w io.Writer) Option {
	return func(s *Session) { s.render = w }
}

// Session is one configured stream, ready to run once.
type Session struct {
	cfg       config.Session
	pipeline  *stream.Pipeline
	engine    device.Engine
	recorders []*record.Recorder
	file      *audio.PCMBuffer
	closers   []io.Closer

	factory EngineFactory
	render  io.Writer
	ran     atomic.Bool
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Open validates cfg and builds every component of the session. Any error
// here is a startup failure: nothing has streamed yet.
func Open(cfg config.Session, opts ...Option) (_ *Session, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &Session{cfg: cfg}
	s.factory = s.defaultEngine
	for _, opt := range opts {
		opt(s)
	}

	defer func() {
		if err != nil {
			s.closeAll()
		}
	}()

	mode, err := s.buildMode()
	if err != nil {
		return nil, err
	}

	layout := stream.Layout{SampleRate: s.cfg.SampleRate, Channels: s.cfg.Channels, Frames: s.cfg.Frames}

	var popts []stream.Option
	dir := s.cfg.Direction()
	if s.cfg.CaptureOut != "" && dir.HasInput() {
		rec, err := s.openRecorder("capture", s.cfg.CaptureOut, layout)
		if err != nil {
			return nil, err
		}
		popts = append(popts, stream.WithCaptureTee(rec))
	}
	if s.cfg.RenderOut != "" && dir.HasOutput() {
		rec, err := s.openRecorder("render", s.cfg.RenderOut, layout)
		if err != nil {
			return nil, err
		}
		popts = append(popts, stream.WithRenderTee(rec))
	}

	s.pipeline, err = stream.New(layout, mode, popts...)
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}

	s.engine, err = s.factory(s.pipeline, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s engine: %w", s.cfg.Backend, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Open",
		"mode":        mode.String(),
		"direction":   dir.String(),
		"backend":     s.cfg.Backend,
		"sample_rate": layout.SampleRate,
		"channels":    layout.Channels,
		"frames":      layout.Frames,
		"period":      layout.Period(),
	}).Info("Session ready")

	return s, nil
}

func (s *Session) buildMode() (stream.Mode, error) {
	switch s.cfg.Kind() {
	case config.SourceGenerator:
		tone, err := s.newTone()
		if err != nil {
			return nil, err
		}

		return stream.Generator{Tone: tone, Invert: s.cfg.Invert && s.cfg.Channels >= 2}, nil

	case config.SourceCancel:
		tone, err := s.newTone()
		if err != nil {
			return nil, err
		}

		filter, err := lms.New(s.cfg.Taps, s.cfg.StepSize, lms.WithChunkSize(s.cfg.Frames))
		if err != nil {
			return nil, fmt.Errorf("creating filter: %w", err)
		}

		if limit := lms.MaxStableStep(s.cfg.Taps, lms.SinePower(s.cfg.Amplitude)); s.cfg.StepSize > limit {
			logrus.WithFields(logrus.Fields{
				"function": "buildMode",
				"mu":       s.cfg.StepSize,
				"limit":    limit,
				"taps":     s.cfg.Taps,
			}).Warn("Step size exceeds the stability bound for the reference tone; the filter may diverge")
		}

		return stream.Cancel{Filter: filter, Tone: tone}, nil

	case config.SourceFile:
		return s.loadFile()

	default:
		return stream.Passthrough{}, nil
	}
}

func (s *Session) newTone() (*siggen.Tone, error) {
	tone, err := siggen.NewTone(s.cfg.Amplitude, s.cfg.Frequency, s.cfg.SampleRate, s.cfg.Phase)
	if err != nil {
		return nil, fmt.Errorf("creating tone: %w", err)
	}

	return tone, nil
}

// loadFile reads the source file into memory. Unless Conform is set the
// session adopts the file's sample rate and channel count.
func (s *Session) loadFile() (stream.Mode, error) {
	path := s.cfg.FilePath()

	rate, channels := 0, 0
	if s.cfg.Conform {
		rate, channels = s.cfg.SampleRate, s.cfg.Channels
	}

	buf, err := duplexpbx.LoadFile(path, rate, channels)
	if err != nil {
		return nil, fmt.Errorf("opening source file: %w", err)
	}

	if buf.SampleRate() != s.cfg.SampleRate || buf.Channels() != s.cfg.Channels {
		logrus.WithFields(logrus.Fields{
			"function":    "loadFile",
			"path":        path,
			"sample_rate": buf.SampleRate(),
			"channels":    buf.Channels(),
		}).Info("Using the file's sample rate and channel count")

		s.cfg.SampleRate = buf.SampleRate()
		s.cfg.Channels = buf.Channels()
	}

	logrus.WithFields(logrus.Fields{
		"function": "loadFile",
		"path":     path,
		"frames":   buf.Frames(),
	}).Debug("Loaded source file")

	s.file = buf

	return stream.FilePlayback{Source: buf, Loop: s.cfg.Loop}, nil
}

func (s *Session) openRecorder(name, path string, layout stream.Layout) (*record.Recorder, error) {
	w, err := wav.Create(path, layout.SampleRate, layout.Channels)
	if err != nil {
		return nil, fmt.Errorf("creating %s recording: %w", name, err)
	}
	s.closers = append(s.closers, w)

	rec, err := record.New(w, s.cfg.RecorderSlots, layout.ChunkBytes(), record.WithName(name))
	if err != nil {
		return nil, fmt.Errorf("creating %s recorder: %w", name, err)
	}
	s.recorders = append(s.recorders, rec)

	logrus.WithFields(logrus.Fields{
		"function": "openRecorder",
		"recorder": name,
		"path":     path,
	}).Info("Recording")

	return rec, nil
}

func (s *Session) defaultEngine(proc device.Processor, cfg config.Session) (device.Engine, error) {
	switch cfg.Backend {
	case config.BackendClocked:
		opts := []device.ClockedOption{device.WithRender(s.render)}
		if cfg.Direction().HasInput() {
			capture, err := s.clockInput(proc.Layout())
			if err != nil {
				return nil, err
			}
			opts = append(opts, device.WithCapture(capture))
		}

		c, err := device.NewClocked(proc, opts...)
		if err != nil {
			return nil, err
		}

		return c, nil

	case config.BackendOto:
		return device.NewOto(proc)

	default:
		terminate, err := device.Init()
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, closerFunc(terminate))

		return device.OpenPortAudio(proc, cfg.Direction(), cfg.InputDevice(), cfg.OutputDevice())
	}
}

// clockInput is the capture stream of the clocked backend: the ClockInput
// file conformed to the layout, or endless silence.
func (s *Session) clockInput(layout stream.Layout) (io.Reader, error) {
	if s.cfg.ClockInput == "" {
		return silence{}, nil
	}

	buf, err := duplexpbx.LoadFile(s.cfg.ClockInput, layout.SampleRate, layout.Channels)
	if err != nil {
		return nil, fmt.Errorf("opening clock input: %w", err)
	}

	b := make([]byte, len(buf.Samples())*pcm.BytesPerSample)
	pcm.PutInt16s(b, buf.Samples())

	return bytes.NewReader(b), nil
}

type silence struct{}

func (silence) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// Config is the effective configuration, after a file source's format has
// been adopted.
func (s *Session) Config() config.Session { return s.cfg }

func (s *Session) Stats() stream.Snapshot { return s.pipeline.Stats() }

// Run streams until ctx is done, the source ends, the duration elapses or
// a fatal error occurs. The recorders are drained before Run returns.
// Cancelling ctx is a normal shutdown and is not reported as an error.
func (s *Session) Run(ctx context.Context) error {
	if !s.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}

	if s.cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Duration)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)

	// Recorders outlive the engine so they can drain the last chunks.
	recCtx, stopRecorders := context.WithCancel(context.WithoutCancel(ctx))
	defer stopRecorders()

	for _, rec := range s.recorders {
		g.Go(func() error { return rec.Run(recCtx) })
	}

	g.Go(func() error {
		defer stopRecorders()

		if err := s.engine.Start(); err != nil {
			return fmt.Errorf("starting engine: %w", err)
		}

		logrus.WithFields(logrus.Fields{
			"function": "Run",
			"mode":     s.pipeline.Mode().String(),
		}).Info("Streaming")

		select {
		case <-gctx.Done():
		case <-s.engine.Done():
		}

		s.pipeline.Stop()
		stopErr := s.engine.Stop()

		return errors.Join(s.engine.Err(), s.pipeline.Err(), stopErr)
	})

	err := g.Wait()
	s.logStats()

	return err
}

func (s *Session) logStats() {
	st := s.pipeline.Stats()

	fields := logrus.Fields{
		"function":         "Run",
		"chunks":           st.Chunks,
		"overruns":         st.Overruns,
		"mean":             st.Mean(),
		"max":              st.Max,
		"input_underflow":  st.InputUnderflow,
		"input_overflow":   st.InputOverflow,
		"output_underflow": st.OutputUnderflow,
		"output_overflow":  st.OutputOverflow,
		"capture_drops":    st.CaptureDrops,
		"render_drops":     st.RenderDrops,
	}
	for _, rec := range s.recorders {
		fields[rec.Name()+"_bytes"] = rec.Written()
	}
	if s.file != nil {
		fields["unplayed_frames"] = s.file.Remaining()
	}

	entry := logrus.WithFields(fields)
	if st.Overruns > 0 || st.CaptureDrops > 0 || st.RenderDrops > 0 {
		entry.Warn("Session finished with missed deadlines or dropped chunks")
		return
	}

	entry.Info("Session finished")
}

// Close releases the engine and every file the session opened.
func (s *Session) Close() error {
	var errs []error
	if s.engine != nil {
		errs = append(errs, s.engine.Close())
	}
	errs = append(errs, s.closeAll())

	return errors.Join(errs...)
}

func (s *Session) closeAll() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	s.closers = nil

	return errors.Join(errs...)
}
