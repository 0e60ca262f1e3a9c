// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"io"
	"slices"
	"testing"

	"github.com/ik5/duplexpbx/internal/audiotest"
)

func TestNewPCMBuffer_InvalidFormat(t *testing.T) {
	t.Parallel()

	if _, err := NewPCMBuffer(0, 1, nil); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("NewPCMBuffer(rate=0) error = %v, want ErrInvalidFormat", err)
	}
	if _, err := NewPCMBuffer(8000, 0, nil); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("NewPCMBuffer(channels=0) error = %v, want ErrInvalidFormat", err)
	}
}

func TestPCMBuffer_ReadPCM(t *testing.T) {
	t.Parallel()

	// Five samples in stereo: the trailing half frame is dropped.
	buf, err := NewPCMBuffer(8000, 2, []int16{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("NewPCMBuffer() error = %v", err)
	}

	if buf.Frames() != 2 {
		t.Fatalf("Frames() = %d, want 2", buf.Frames())
	}

	dst := make([]int16, 2)
	n, err := buf.ReadPCM(dst)
	if n != 2 || err != nil {
		t.Fatalf("first ReadPCM() = %d, %v; want 2, nil", n, err)
	}
	if buf.Remaining() != 1 {
		t.Errorf("Remaining() = %d, want 1", buf.Remaining())
	}

	dst = make([]int16, 4)
	n, err = buf.ReadPCM(dst)
	if n != 2 || err != io.EOF {
		t.Fatalf("second ReadPCM() = %d, %v; want 2, io.EOF", n, err)
	}
	if !slices.Equal(dst[:n], []int16{3, 4}) {
		t.Errorf("second ReadPCM() samples = %v, want [3 4]", dst[:n])
	}

	if n, err := buf.ReadPCM(dst); n != 0 || err != io.EOF {
		t.Errorf("ReadPCM() after end = %d, %v; want 0, io.EOF", n, err)
	}

	buf.Rewind()
	if buf.Remaining() != 2 {
		t.Errorf("Remaining() after Rewind = %d, want 2", buf.Remaining())
	}

	if _, err := buf.ReadPCM(make([]int16, 3)); !errors.Is(err, ErrInvalidDstSize) {
		t.Errorf("ReadPCM(odd dst) error = %v, want ErrInvalidDstSize", err)
	}
}

func TestReadAll(t *testing.T) {
	t.Parallel()

	src := audiotest.NewRampSource(8000, 2, 10000)

	samples, err := ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	if len(samples) != 20000 {
		t.Fatalf("len(ReadAll()) = %d, want 20000", len(samples))
	}
	for i, v := range samples {
		if v != int16(i) {
			t.Fatalf("sample %d = %d, want %d", i, v, int16(i))
		}
	}
}

type stalledSource struct{}

func (stalledSource) SampleRate() int              { return 8000 }
func (stalledSource) Channels() int                { return 1 }
func (stalledSource) ReadPCM([]int16) (int, error) { return 0, nil }
func (stalledSource) Close() error                 { return nil }

func TestReadAll_NoProgress(t *testing.T) {
	t.Parallel()

	if _, err := ReadAll(stalledSource{}); !errors.Is(err, io.ErrNoProgress) {
		t.Errorf("ReadAll() error = %v, want io.ErrNoProgress", err)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	buf, err := Load(audiotest.NewConstantSource(16000, 1, 300, 7))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if buf.SampleRate() != 16000 || buf.Channels() != 1 || buf.Frames() != 300 {
		t.Errorf("Load() = %d Hz, %d ch, %d frames; want 16000, 1, 300",
			buf.SampleRate(), buf.Channels(), buf.Frames())
	}
}
