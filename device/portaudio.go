// SPDX-License-Identifier: EPL-2.0

//go:build !headless

package device

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"text/tabwriter"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"

	"github.com/ik5/duplexpbx/config"
	"github.com/ik5/duplexpbx/pcm"
	"github.com/ik5/duplexpbx/stream"
)

// Init initializes PortAudio. The returned function terminates it and must
// be called after every PortAudio engine is closed.
func Init() (terminate func() error, err error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}

	return portaudio.Terminate, nil
}

// PortAudio runs the processor inside the PortAudio stream callback.
type PortAudio struct {
	state

	proc     Processor
	stream   *portaudio.Stream
	dir      config.Direction
	channels int
	in       []byte
	halted   atomic.Bool

	stopOnce sync.Once
	stopErr  error
}

// OpenPortAudio opens a stream in direction dir on the named devices. An
// empty name selects the host's default device. Init must have been called.
func OpenPortAudio(proc Processor, dir config.Direction, input, output string) (Engine, error) {
	if proc == nil {
		return nil, ErrNilProcessor
	}
	if dir == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDirection, dir)
	}

	layout := proc.Layout()
	e := &PortAudio{
		proc:     proc,
		dir:      dir,
		channels: layout.Channels,
		in:       make([]byte, layout.ChunkBytes()),
	}
	e.init()

	params := portaudio.StreamParameters{
		SampleRate:      float64(layout.SampleRate),
		FramesPerBuffer: layout.Frames,
	}

	if dir.HasInput() {
		dev, err := FindDevice(input, layout.Channels, config.Input)
		if err != nil {
			return nil, err
		}
		params.Input = portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: layout.Channels,
			Latency:  dev.DefaultLowInputLatency,
		}
	}
	if dir.HasOutput() {
		dev, err := FindDevice(output, layout.Channels, config.Output)
		if err != nil {
			return nil, err
		}
		params.Output = portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: layout.Channels,
			Latency:  dev.DefaultLowOutputLatency,
		}
	}

	var callback any
	switch dir {
	case config.Duplex:
		callback = e.duplex
	case config.Input:
		callback = e.capture
	case config.Output:
		callback = e.playback
	}

	s, err := portaudio.OpenStream(params, callback)
	if err != nil {
		return nil, fmt.Errorf("opening %s stream: %w", dir, err)
	}
	e.stream = s

	fields := logrus.Fields{
		"function":    "OpenPortAudio",
		"direction":   dir.String(),
		"sample_rate": layout.SampleRate,
		"channels":    layout.Channels,
		"frames":      layout.Frames,
	}
	if params.Input.Device != nil {
		fields["input"] = params.Input.Device.Name
	}
	if params.Output.Device != nil {
		fields["output"] = params.Output.Device.Name
	}
	logrus.WithFields(fields).Info("Opened PortAudio stream")

	return e, nil
}

func (e *PortAudio) duplex(in, out []int16, ti portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	e.process(in, out, ti, flags)
}

func (e *PortAudio) capture(in []int16, ti portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	e.process(in, nil, ti, flags)
}

func (e *PortAudio) playback(out []int16, ti portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	e.process(nil, out, ti, flags)
}

func (e *PortAudio) process(in, out []int16, ti portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	if e.halted.Load() {
		clear(out)
		return
	}

	var (
		chunk  []byte
		frames int
	)
	if in != nil {
		frames = len(in) / e.channels
		if len(in)*pcm.BytesPerSample <= len(e.in) {
			chunk = e.in[:pcm.PutInt16s(e.in, in)]
		}
	} else {
		frames = len(out) / e.channels
	}

	b, status, err := e.proc.Process(chunk, frames, timeInfo(ti, flags))

	n := pcm.Int16s(out, b)
	clear(out[n:])

	if status != stream.Continue {
		e.halted.Store(true)
		e.finish(err)
	}
}

func timeInfo(ti portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) stream.TimeInfo {
	var f stream.Flags
	if flags&portaudio.InputUnderflow != 0 {
		f |= stream.InputUnderflow
	}
	if flags&portaudio.InputOverflow != 0 {
		f |= stream.InputOverflow
	}
	if flags&portaudio.OutputUnderflow != 0 {
		f |= stream.OutputUnderflow
	}
	if flags&portaudio.OutputOverflow != 0 {
		f |= stream.OutputOverflow
	}
	if flags&portaudio.PrimingOutput != 0 {
		f |= stream.PrimingOutput
	}

	return stream.TimeInfo{
		InputADC:  ti.InputBufferAdcTime,
		Current:   ti.CurrentTime,
		OutputDAC: ti.OutputBufferDacTime,
		Flags:     f,
	}
}

func (e *PortAudio) Start() error {
	if err := e.stream.Start(); err != nil {
		return fmt.Errorf("starting %s stream: %w", e.dir, err)
	}

	return nil
}

// Stop waits for the running callback to return.
func (e *PortAudio) Stop() error {
	e.stopOnce.Do(func() {
		e.halted.Store(true)
		if err := e.stream.Stop(); err != nil {
			e.stopErr = fmt.Errorf("stopping %s stream: %w", e.dir, err)
		}
		e.finish(nil)
	})

	return e.stopErr
}

func (e *PortAudio) Close() error {
	stopErr := e.Stop()
	if err := e.stream.Close(); err != nil {
		return fmt.Errorf("closing %s stream: %w", e.dir, err)
	}

	return stopErr
}

// FindDevice returns the device whose name matches exactly and which has
// at least channels channels in direction dir. An empty name selects the
// default device.
func FindDevice(name string, channels int, dir config.Direction) (*portaudio.DeviceInfo, error) {
	if name == "" {
		if dir.HasInput() {
			return portaudio.DefaultInputDevice()
		}

		return portaudio.DefaultOutputDevice()
	}

	devices, err := Candidates(channels, dir)
	if err != nil {
		return nil, err
	}

	for _, d := range devices {
		if d.Name == name {
			return d, nil
		}
	}

	return nil, fmt.Errorf("%w: %q with %d %s channels", ErrDeviceNotFound, name, channels, dir)
}

// Candidates lists the devices with at least channels channels in
// direction dir.
func Candidates(channels int, dir config.Direction) ([]*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	var out []*portaudio.DeviceInfo
	for _, d := range devices {
		if dir.HasInput() && d.MaxInputChannels < channels {
			continue
		}
		if dir.HasOutput() && d.MaxOutputChannels < channels {
			continue
		}
		out = append(out, d)
	}

	return out, nil
}

// List writes a table of every device to w.
func List(w io.Writer) error {
	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("listing devices: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tHOST API\tIN\tOUT\tRATE")
	for _, d := range devices {
		api := ""
		if d.HostApi != nil {
			api = d.HostApi.Name
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%.0f\n",
			d.Index, d.Name, api, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
	}

	return tw.Flush()
}

// Names returns the names of the devices Candidates reports.
func Names(channels int, dir config.Direction) ([]string, error) {
	devices, err := Candidates(channels, dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}

	return names, nil
}
