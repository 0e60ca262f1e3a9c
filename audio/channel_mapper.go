// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// ChannelMapper converts a source to a different channel count.
//
//   - N -> 1 averages all channels.
//   - 1 -> N duplicates the mono channel.
//   - M -> N otherwise copies channel c from source channel c mod M, which
//     keeps the leading channels and drops or repeats the rest.
type ChannelMapper struct {
	src      Source
	channels int
	tmp      []int16
}

func NewChannelMapper(src Source, channels int) *ChannelMapper {
	return &ChannelMapper{
		src:      src,
		channels: channels,
		tmp:      make([]int16, 4096),
	}
}

// NewMonoMixer downmixes src to a single channel.
func NewMonoMixer(src Source) *ChannelMapper { return NewChannelMapper(src, 1) }

func (m *ChannelMapper) SampleRate() int { return m.src.SampleRate() }
func (m *ChannelMapper) Channels() int   { return m.channels }
func (m *ChannelMapper) Close() error {
	err := m.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

func (m *ChannelMapper) ReadPCM(dst []int16) (int, error) {
	if len(dst)%m.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if len(dst) == 0 {
		return 0, nil
	}

	in := m.src.Channels()
	if in == m.channels {
		return m.src.ReadPCM(dst)
	}

	frames := len(dst) / m.channels
	need := frames * in

	// Grow tmp if needed, never shrink.
	if cap(m.tmp) < need {
		m.tmp = make([]int16, need)
	}
	m.tmp = m.tmp[:need]

	n, err := m.src.ReadPCM(m.tmp)
	if n == 0 {
		return 0, err
	}
	got := n / in

	switch {
	case m.channels == 1:
		for f := range got {
			sum := 0
			for _, v := range m.tmp[f*in : (f+1)*in] {
				sum += int(v)
			}
			dst[f] = int16(sum / in)
		}
	case in == 1:
		for f := range got {
			v := m.tmp[f]
			for c := range m.channels {
				dst[f*m.channels+c] = v
			}
		}
	default:
		for f := range got {
			for c := range m.channels {
				dst[f*m.channels+c] = m.tmp[f*in+c%in]
			}
		}
	}

	return got * m.channels, err
}
