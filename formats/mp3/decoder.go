// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/duplexpbx/audio"
)

// go-mp3 always decodes to 16-bit little-endian stereo.
const channels = 2

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type source struct {
	dec        mp3Reader
	sampleRate int
	buf        []byte
	pending    int // bytes at the front of buf left over from the last read
	eof        bool
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return channels }
func (s *source) Close() error    { return nil }

func (s *source) ReadPCM(dst []int16) (int, error) {
	if len(dst)%channels != 0 {
		return 0, audio.ErrInvalidDstSize
	}
	if len(dst) == 0 {
		return 0, nil
	}

	const frameBytes = 2 * channels
	need := len(dst) * 2
	if cap(s.buf) < need {
		grown := make([]byte, need)
		copy(grown, s.buf[:s.pending])
		s.buf = grown
	}
	s.buf = s.buf[:need]

	var err error
	have := s.pending
	if !s.eof {
		var n int
		n, err = io.ReadAtLeast(s.dec, s.buf[have:], min(frameBytes, need-have))
		have += n
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			s.eof, err = true, nil
		} else if err != nil {
			return 0, fmt.Errorf("decoding mp3: %w", err)
		}
	}

	whole := have - have%frameBytes
	for i := range whole / 2 {
		dst[i] = int16(binary.LittleEndian.Uint16(s.buf[2*i:]))
	}
	s.pending = copy(s.buf, s.buf[whole:have])

	if s.eof && s.pending < frameBytes {
		return whole / 2, io.EOF
	}

	return whole / 2, nil
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		buf:        make([]byte, 8192),
	}, nil
}
