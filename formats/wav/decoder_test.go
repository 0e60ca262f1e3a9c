// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"slices"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/ik5/duplexpbx/audio"
)

// createWAVFile builds a canonical 44-byte-header wave file by hand so that
// unusual layouts can be produced.
func createWAVFile(sampleRate, channels, bitsPerSample, format int, samples []int16) []byte {
	buf := new(bytes.Buffer)

	numChannels := uint16(channels)
	bits := uint16(bitsPerSample)
	byteRate := uint32(sampleRate) * uint32(numChannels) * uint32(bits/8)
	blockAlign := numChannels * (bits / 8)
	dataSize := uint32(len(samples) * 2)

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(format))
	binary.Write(buf, binary.LittleEndian, numChannels)
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, byteRate)
	binary.Write(buf, binary.LittleEndian, blockAlign)
	binary.Write(buf, binary.LittleEndian, bits)

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, dataSize)
	for _, s := range samples {
		binary.Write(buf, binary.LittleEndian, s)
	}

	return buf.Bytes()
}

func decodeAll(t *testing.T, data []byte) (audio.Source, []int16) {
	t.Helper()

	src, err := Decoder{}.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	samples, err := audio.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	return src, samples
}

func TestDecoder_ValidWAVFile(t *testing.T) {
	t.Parallel()

	want := []int16{0, 100, 200, -100, -200, 0}
	src, got := decodeAll(t, createWAVFile(8000, 1, 16, formatPCM, want))

	if src.SampleRate() != 8000 {
		t.Errorf("SampleRate() = %d, want 8000", src.SampleRate())
	}
	if src.Channels() != 1 {
		t.Errorf("Channels() = %d, want 1", src.Channels())
	}
	if !slices.Equal(got, want) {
		t.Errorf("samples = %v, want %v", got, want)
	}
}

func TestDecoder_StereoWAVFile(t *testing.T) {
	t.Parallel()

	want := []int16{100, 200, 300, 400, 500, 600}
	src, got := decodeAll(t, createWAVFile(44100, 2, 16, formatPCM, want))

	if src.SampleRate() != 44100 || src.Channels() != 2 {
		t.Errorf("format = %d Hz, %d ch; want 44100, 2", src.SampleRate(), src.Channels())
	}
	if !slices.Equal(got, want) {
		t.Errorf("samples = %v, want %v", got, want)
	}
}

func TestDecoder_ExtremeValues(t *testing.T) {
	t.Parallel()

	want := []int16{0, 16384, 32767, -16384, -32768}
	_, got := decodeAll(t, createWAVFile(8000, 1, 16, formatPCM, want))

	if !slices.Equal(got, want) {
		t.Errorf("samples = %v, want %v", got, want)
	}
}

func TestDecoder_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"not riff", []byte("NOT A WAV FILE DATA AT ALL, JUST TEXT PADDING BYTES"), ErrNotWavFile},
		{"truncated", []byte("RIFF\x00"), ErrNotWavFile},
		{"8-bit", createWAVFile(8000, 1, 8, formatPCM, []int16{0}), ErrOnlyPCM16bitSupported},
		{"float", createWAVFile(8000, 1, 32, 3, []int16{0, 0}), ErrOnlyPCM16bitSupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decoder{}.Decode(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecoder_SkipsListChunk(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(4+24+12+12))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint32(8000))
	binary.Write(buf, binary.LittleEndian, uint32(16000))
	binary.Write(buf, binary.LittleEndian, uint16(2))
	binary.Write(buf, binary.LittleEndian, uint16(16))

	buf.WriteString("LIST")
	binary.Write(buf, binary.LittleEndian, uint32(4))
	buf.WriteString("INFO")

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(4))
	binary.Write(buf, binary.LittleEndian, int16(100))
	binary.Write(buf, binary.LittleEndian, int16(200))

	_, got := decodeAll(t, buf.Bytes())
	if !slices.Equal(got, []int16{100, 200}) {
		t.Errorf("samples = %v, want [100 200]", got)
	}
}

func TestDecoder_NonSeekableReader(t *testing.T) {
	t.Parallel()

	data := createWAVFile(8000, 1, 16, formatPCM, []int16{7, 8, 9})

	// io.MultiReader hides the Seek method.
	src, err := Decoder{}.Decode(io.MultiReader(bytes.NewReader(data)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	got, err := audio.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !slices.Equal(got, []int16{7, 8, 9}) {
		t.Errorf("samples = %v, want [7 8 9]", got)
	}
}

func TestSource_ReadPCM_EOF(t *testing.T) {
	t.Parallel()

	src, err := Decoder{}.Decode(bytes.NewReader(createWAVFile(8000, 2, 16, formatPCM, []int16{1, 2, 3, 4, 5, 6})))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if _, err := src.ReadPCM(make([]int16, 3)); !errors.Is(err, audio.ErrInvalidDstSize) {
		t.Errorf("ReadPCM(odd dst) error = %v, want ErrInvalidDstSize", err)
	}

	dst := make([]int16, 4)
	if n, err := src.ReadPCM(dst); n != 4 || err != nil {
		t.Fatalf("first ReadPCM() = %d, %v; want 4, nil", n, err)
	}

	n, err := src.ReadPCM(dst)
	if n != 2 || err != io.EOF {
		t.Fatalf("second ReadPCM() = %d, %v; want 2, io.EOF", n, err)
	}
	if !slices.Equal(dst[:n], []int16{5, 6}) {
		t.Errorf("second ReadPCM() samples = %v, want [5 6]", dst[:n])
	}

	if n, err := src.ReadPCM(dst); n != 0 || err != io.EOF {
		t.Errorf("ReadPCM() after end = %d, %v; want 0, io.EOF", n, err)
	}
}

type failingReader struct{}

func (failingReader) PCMBuffer(*goaudio.IntBuffer) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestSource_ReadPCM_Error(t *testing.T) {
	t.Parallel()

	src := &source{dec: failingReader{}, sampleRate: 8000, channels: 1}
	if _, err := src.ReadPCM(make([]int16, 8)); err == nil || err == io.EOF {
		t.Errorf("ReadPCM() error = %v, want wrapped read error", err)
	}
}

func BenchmarkSource_ReadPCM(b *testing.B) {
	data := createWAVFile(16000, 1, 16, formatPCM, make([]int16, 16000))
	buf := make([]int16, 256)
	b.ReportAllocs()

	for b.Loop() {
		src, err := Decoder{}.Decode(bytes.NewReader(data))
		if err != nil {
			b.Fatal(err)
		}
		for {
			if _, err := src.ReadPCM(buf); err != nil {
				break
			}
		}
	}
}
