// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/ik5/duplexpbx/audio"
	"github.com/ik5/duplexpbx/lms"
	"github.com/ik5/duplexpbx/pcm"
	"github.com/ik5/duplexpbx/siggen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTone(t testing.TB, rate int) *siggen.Tone {
	t.Helper()

	tone, err := siggen.NewTone(4096, 100, rate, 0)
	require.NoError(t, err)

	return tone
}

// interleave builds a capture chunk from per-channel samples.
func interleave(channels ...[]int16) []byte {
	frames := len(channels[0])
	b := make([]byte, frames*len(channels)*2)
	for f := range frames {
		for c, ch := range channels {
			binary.LittleEndian.PutUint16(b[(f*len(channels)+c)*2:], uint16(ch[f]))
		}
	}

	return b
}

func column(b []byte, channels, c int) []int16 {
	frames := len(b) / (2 * channels)
	out := make([]int16, frames)
	for f := range frames {
		out[f] = int16(binary.LittleEndian.Uint16(b[(f*channels+c)*2:]))
	}

	return out
}

type captureTee struct {
	chunks [][]byte
	full   bool
}

func (c *captureTee) Tee(p []byte) bool {
	if c.full {
		return false
	}
	c.chunks = append(c.chunks, bytes.Clone(p))
	return true
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	mono := Layout{SampleRate: 16000, Channels: 1, Frames: 256}
	stereo := Layout{SampleRate: 16000, Channels: 2, Frames: 256}
	filter, err := lms.New(8, 1e-6)
	require.NoError(t, err)
	buf, err := audio.NewPCMBuffer(8000, 1, make([]int16, 10))
	require.NoError(t, err)

	tests := []struct {
		name   string
		layout Layout
		mode   Mode
		want   error
	}{
		{"bad layout", Layout{SampleRate: 16000, Channels: 0, Frames: 256}, Passthrough{}, ErrInvalidLayout},
		{"nil mode", mono, nil, ErrNilMode},
		{"generator without tone", mono, Generator{}, ErrMissingTone},
		{"inverted generator on mono", mono, Generator{Tone: newTone(t, 16000), Invert: true}, ErrNeedsStereo},
		{"generator rate", mono, Generator{Tone: newTone(t, 8000)}, ErrRateMismatch},
		{"file without source", mono, FilePlayback{}, ErrMissingSource},
		{"file format", mono, FilePlayback{Source: buf}, ErrFormatMismatch},
		{"cancel without filter", stereo, Cancel{Tone: newTone(t, 16000)}, ErrMissingFilter},
		{"cancel without tone", stereo, Cancel{Filter: filter}, ErrMissingTone},
		{"cancel on mono", mono, Cancel{Filter: filter, Tone: newTone(t, 16000)}, ErrNeedsStereo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.layout, tt.mode)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLayout(t *testing.T) {
	t.Parallel()

	l := Layout{SampleRate: 16000, Channels: 2, Frames: 256}
	assert.Equal(t, 1024, l.ChunkBytes())
	assert.Equal(t, 16*time.Millisecond, l.Period())
}

func TestPassthrough_ByteForByte(t *testing.T) {
	t.Parallel()

	layout := Layout{SampleRate: 16000, Channels: 2, Frames: 4}
	p, err := New(layout, Passthrough{})
	require.NoError(t, err)

	in := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 0xff, 0x80}
	out, status, err := p.Process(in, 4, TimeInfo{})
	require.NoError(t, err)
	assert.Equal(t, Continue, status)
	assert.Equal(t, in, out)
}

func TestPassthrough_ShapeErrorIsFatal(t *testing.T) {
	t.Parallel()

	p, err := New(Layout{SampleRate: 16000, Channels: 2, Frames: 4}, Passthrough{})
	require.NoError(t, err)

	_, status, err := p.Process(make([]byte, 10), 4, TimeInfo{})
	assert.Equal(t, Abort, status)
	assert.ErrorIs(t, err, pcm.ErrShape)
	assert.ErrorIs(t, p.Err(), pcm.ErrShape)
	assert.True(t, p.Stopped())

	// The error stays latched.
	_, status, err = p.Process(make([]byte, 16), 4, TimeInfo{})
	assert.Equal(t, Abort, status)
	assert.ErrorIs(t, err, pcm.ErrShape)
}

func TestProcess_FrameCountMismatch(t *testing.T) {
	t.Parallel()

	p, err := New(Layout{SampleRate: 16000, Channels: 1, Frames: 256}, Generator{Tone: newTone(t, 16000)})
	require.NoError(t, err)

	_, status, err := p.Process(nil, 128, TimeInfo{})
	assert.Equal(t, Abort, status)

	var shape *pcm.ShapeError
	require.ErrorAs(t, err, &shape)
	assert.Equal(t, 256, shape.Want)
	assert.Equal(t, 128, shape.Got)
}

func TestGenerator_ConcreteScenario(t *testing.T) {
	t.Parallel()

	tone := newTone(t, 16000)
	table := tone.Table()
	require.Len(t, table, 160)

	p, err := New(Layout{SampleRate: 16000, Channels: 1, Frames: 256}, Generator{Tone: tone})
	require.NoError(t, err)

	out, status, err := p.Process(nil, 256, TimeInfo{})
	require.NoError(t, err)
	assert.Equal(t, Continue, status)
	require.Len(t, out, 512)

	got := column(out, 1, 0)
	for i, v := range got {
		require.Equal(t, int16(table[i%160]), v, "sample %d", i)
	}
	assert.Equal(t, 96, tone.Position())

	// The next chunk continues the phase.
	out, _, err = p.Process(nil, 256, TimeInfo{})
	require.NoError(t, err)
	got = column(out, 1, 0)
	assert.Equal(t, int16(table[96]), got[0])
	assert.Equal(t, int16(table[(96+255)%160]), got[255])
}

func TestGenerator_Channels(t *testing.T) {
	t.Parallel()

	layout := Layout{SampleRate: 16000, Channels: 3, Frames: 64}

	dup, err := New(layout, Generator{Tone: newTone(t, 16000)})
	require.NoError(t, err)
	out, _, err := dup.Process(nil, 64, TimeInfo{})
	require.NoError(t, err)
	assert.Equal(t, column(out, 3, 0), column(out, 3, 1))
	assert.Equal(t, column(out, 3, 0), column(out, 3, 2))

	inv, err := New(layout, Generator{Tone: newTone(t, 16000), Invert: true})
	require.NoError(t, err)
	out, _, err = inv.Process(nil, 64, TimeInfo{})
	require.NoError(t, err)

	left, right := column(out, 3, 0), column(out, 3, 1)
	for i := range left {
		assert.Equal(t, -left[i], right[i], "frame %d", i)
	}
	assert.Equal(t, left, column(out, 3, 2))
}

func TestFilePlayback_EndsWithShortChunk(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 2*600)
	for i := range samples {
		samples[i] = int16(i)
	}
	buf, err := audio.NewPCMBuffer(16000, 2, samples)
	require.NoError(t, err)

	render := &captureTee{}
	p, err := New(Layout{SampleRate: 16000, Channels: 2, Frames: 256}, FilePlayback{Source: buf}, WithRenderTee(render))
	require.NoError(t, err)

	var played []byte
	statuses := []Status{}
	for range 3 {
		out, status, err := p.Process(nil, 256, TimeInfo{})
		require.NoError(t, err)
		played = append(played, out...)
		statuses = append(statuses, status)
	}

	assert.Equal(t, []Status{Continue, Continue, Complete}, statuses)
	assert.Len(t, played, 600*2*2)
	assert.Equal(t, interleave(samples), played)
	assert.Len(t, render.chunks, 3)
	assert.Len(t, render.chunks[2], 88*2*2)

	out, status, err := p.Process(nil, 256, TimeInfo{})
	assert.NoError(t, err)
	assert.Equal(t, Complete, status)
	assert.Empty(t, out)
}

func TestFilePlayback_Loop(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 100)
	for i := range samples {
		samples[i] = int16(i + 1)
	}
	buf, err := audio.NewPCMBuffer(16000, 1, samples)
	require.NoError(t, err)

	p, err := New(Layout{SampleRate: 16000, Channels: 1, Frames: 64}, FilePlayback{Source: buf, Loop: true})
	require.NoError(t, err)
	assert.Equal(t, "file(loop)", p.Mode().String())

	var played []byte
	for range 5 {
		out, status, err := p.Process(nil, 64, TimeInfo{})
		require.NoError(t, err)
		require.Equal(t, Continue, status)
		require.Len(t, out, 64*2)
		played = append(played, out...)
	}

	var want []int16
	for len(want) < 5*64 {
		want = append(want, samples...)
	}
	assert.Equal(t, interleave(want[:5*64]), played)
	assert.Equal(t, 100-(5*64)%100, buf.Remaining())
}

func TestFilePlayback_LoopEmptySourceEnds(t *testing.T) {
	t.Parallel()

	buf, err := audio.NewPCMBuffer(16000, 1, nil)
	require.NoError(t, err)

	p, err := New(Layout{SampleRate: 16000, Channels: 1, Frames: 64}, FilePlayback{Source: buf, Loop: true})
	require.NoError(t, err)

	out, status, err := p.Process(nil, 64, TimeInfo{})
	require.NoError(t, err)
	assert.Equal(t, Complete, status)
	assert.Empty(t, out)
}

func TestFilePlayback_LoopNeedsRewinder(t *testing.T) {
	t.Parallel()

	buf, err := audio.NewPCMBuffer(16000, 1, make([]int16, 10))
	require.NoError(t, err)

	// Embedding the interface hides Rewind.
	src := struct{ audio.Source }{buf}
	_, err = New(Layout{SampleRate: 16000, Channels: 1, Frames: 64}, FilePlayback{Source: src, Loop: true})
	assert.ErrorIs(t, err, ErrNotRewindable)
}

func TestCancel_MatchesDirectFilter(t *testing.T) {
	t.Parallel()

	const (
		frames = 64
		chunks = 20
		taps   = 16
		mu     = 1e-10
	)

	pipeFilter, err := lms.New(taps, mu)
	require.NoError(t, err)
	refFilter, err := lms.New(taps, mu)
	require.NoError(t, err)

	tone := newTone(t, 16000)
	p, err := New(Layout{SampleRate: 16000, Channels: 2, Frames: frames}, Cancel{Filter: pipeFilter, Tone: tone})
	require.NoError(t, err)

	expectTone := newTone(t, 16000)
	ref := make([]int16, frames)
	errSig := make([]int16, frames)
	refF := make([]float64, frames)
	errF := make([]float64, frames)
	y := make([]float64, frames)
	toneBuf := make([]float64, frames)

	for k := range chunks {
		for i := range frames {
			n := float64(k*frames + i)
			ref[i] = int16(8000 * math.Sin(2*math.Pi*n/50))
			errSig[i] = int16(6000 * math.Sin(2*math.Pi*n/50+0.3))
			refF[i], errF[i] = float64(ref[i]), float64(errSig[i])
		}

		out, status, err := p.Process(interleave(ref, errSig), frames, TimeInfo{})
		require.NoError(t, err)
		require.Equal(t, Continue, status)

		require.NoError(t, refFilter.Process(y, refF, errF))
		expectTone.Fill(toneBuf)

		left, right := column(out, 2, 0), column(out, 2, 1)
		for i := range frames {
			require.Equal(t, int16(toneBuf[i]), left[i], "chunk %d frame %d tone", k, i)
			require.Equal(t, pcm.Truncate(y[i]), right[i], "chunk %d frame %d filter", k, i)
		}
	}

	assert.Equal(t, refFilter.Weights(), pipeFilter.Weights())
}

func TestCancel_ZeroInput(t *testing.T) {
	t.Parallel()

	filter, err := lms.New(32, 0.01)
	require.NoError(t, err)
	p, err := New(Layout{SampleRate: 16000, Channels: 4, Frames: 128}, Cancel{Filter: filter, Tone: newTone(t, 16000)})
	require.NoError(t, err)

	for range 10 {
		out, _, err := p.Process(make([]byte, 128*4*2), 128, TimeInfo{})
		require.NoError(t, err)
		assert.Equal(t, make([]int16, 128), column(out, 4, 1))
		assert.Equal(t, make([]int16, 128), column(out, 4, 2))
		assert.Equal(t, make([]int16, 128), column(out, 4, 3))
	}
	assert.Equal(t, make([]float64, 32), filter.Weights())
}

func TestTees(t *testing.T) {
	t.Parallel()

	capture := &captureTee{}
	render := &captureTee{}
	full := &captureTee{full: true}

	p, err := New(Layout{SampleRate: 8000, Channels: 1, Frames: 2}, Passthrough{},
		WithCaptureTee(capture), WithRenderTee(render), WithRenderTee(full), WithCaptureTee(nil))
	require.NoError(t, err)

	in := []byte{1, 0, 2, 0}
	_, _, err = p.Process(in, 2, TimeInfo{})
	require.NoError(t, err)
	in[0] = 9 // tees hold their own copies

	assert.Equal(t, [][]byte{{1, 0, 2, 0}}, capture.chunks)
	assert.Equal(t, [][]byte{{1, 0, 2, 0}}, render.chunks)

	s := p.Stats()
	assert.EqualValues(t, 0, s.CaptureDrops)
	assert.EqualValues(t, 1, s.RenderDrops)
}

func TestStop(t *testing.T) {
	t.Parallel()

	p, err := New(Layout{SampleRate: 16000, Channels: 1, Frames: 16}, Generator{Tone: newTone(t, 16000)})
	require.NoError(t, err)

	_, status, err := p.Process(nil, 16, TimeInfo{})
	require.NoError(t, err)
	assert.Equal(t, Continue, status)
	assert.False(t, p.Stopped())

	p.Stop()
	out, status, err := p.Process(nil, 16, TimeInfo{})
	assert.NoError(t, err)
	assert.Equal(t, Complete, status)
	assert.Nil(t, out)
	assert.True(t, p.Stopped())
	assert.NoError(t, p.Err())
}

func TestStats_DeadlineAndFlags(t *testing.T) {
	t.Parallel()

	// Each Process call reads the clock twice; alternate 10ms and 20ms of
	// processing against a 16ms budget.
	base := time.Unix(0, 0)
	steps := []time.Duration{0, 10 * time.Millisecond, 10 * time.Millisecond, 30 * time.Millisecond}
	calls := 0
	clock := func() time.Time {
		d := steps[calls%len(steps)] + time.Duration(calls/len(steps))*time.Second
		calls++
		return base.Add(d)
	}

	p, err := New(Layout{SampleRate: 16000, Channels: 1, Frames: 256}, Generator{Tone: newTone(t, 16000)}, WithClock(clock))
	require.NoError(t, err)

	_, _, err = p.Process(nil, 256, TimeInfo{Flags: InputOverflow | OutputUnderflow})
	require.NoError(t, err)
	_, _, err = p.Process(nil, 256, TimeInfo{Flags: OutputUnderflow})
	require.NoError(t, err)

	s := p.Stats()
	assert.EqualValues(t, 2, s.Chunks)
	assert.EqualValues(t, 1, s.Overruns)
	assert.Equal(t, 20*time.Millisecond, s.Max)
	assert.Equal(t, 30*time.Millisecond, s.Total)
	assert.Equal(t, 15*time.Millisecond, s.Mean())
	assert.EqualValues(t, 1, s.InputOverflow)
	assert.EqualValues(t, 2, s.OutputUnderflow)
	assert.Zero(t, s.InputUnderflow)
}

func TestStringers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "continue", Continue.String())
	assert.Equal(t, "complete", Complete.String())
	assert.Equal(t, "abort", Abort.String())
	assert.Equal(t, "unknown", Status(42).String())

	assert.Equal(t, "none", Flags(0).String())
	assert.Equal(t, "input-underflow|output-overflow", (InputUnderflow | OutputOverflow).String())

	assert.Equal(t, "passthrough", Passthrough{}.String())
	assert.Equal(t, "generator(inverted)", Generator{Invert: true}.String())
	assert.Equal(t, "file", FilePlayback{}.String())
	assert.Equal(t, "cancel", Cancel{}.String())
}

func TestProcess_DoesNotAllocate(t *testing.T) {
	filter, err := lms.New(64, 1e-10)
	require.NoError(t, err)
	p, err := New(Layout{SampleRate: 16000, Channels: 2, Frames: 256}, Cancel{Filter: filter, Tone: newTone(t, 16000)})
	require.NoError(t, err)

	in := make([]byte, p.Layout().ChunkBytes())
	allocs := testing.AllocsPerRun(100, func() {
		_, _, _ = p.Process(in, 256, TimeInfo{})
	})
	assert.Zero(t, allocs)
}

func BenchmarkProcess_Cancel512Taps(b *testing.B) {
	filter, err := lms.New(512, 1e-10)
	require.NoError(b, err)
	p, err := New(Layout{SampleRate: 16000, Channels: 2, Frames: 256}, Cancel{Filter: filter, Tone: newTone(b, 16000)})
	require.NoError(b, err)

	in := make([]byte, p.Layout().ChunkBytes())
	b.ReportAllocs()

	for b.Loop() {
		if _, _, err := p.Process(in, 256, TimeInfo{}); err != nil {
			b.Fatal(err)
		}
	}
}
