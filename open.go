// SPDX-License-Identifier: EPL-2.0

package duplexpbx

import (
	"fmt"
	"os"
	"sync"

	"github.com/ik5/duplexpbx/audio"
	"github.com/ik5/duplexpbx/formats/aiff"
	"github.com/ik5/duplexpbx/formats/mp3"
	"github.com/ik5/duplexpbx/formats/vorbis"
	"github.com/ik5/duplexpbx/formats/wav"
)

var (
	defaultRegistry     *audio.Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the registry of every built-in decoder, keyed by
// file extension.
func DefaultRegistry() *audio.Registry {
	defaultRegistryOnce.Do(func() {
		r := audio.NewRegistry()
		r.Register("wav", wav.Decoder{})
		r.Register("wave", wav.Decoder{})
		r.Register("aif", aiff.Decoder{})
		r.Register("aiff", aiff.Decoder{})
		r.Register("mp3", mp3.Decoder{})
		r.Register("ogg", vorbis.Decoder{})
		r.Register("oga", vorbis.Decoder{})
		defaultRegistry = r
	})

	return defaultRegistry
}

// fileSource closes the underlying file along with the decoded source.
type fileSource struct {
	audio.Source
	f *os.File
}

func (s *fileSource) Close() error {
	err := s.Source.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// OpenFile decodes path with the decoder registered for its extension.
// The returned Source owns the file.
func OpenFile(path string) (audio.Source, error) {
	dec, err := DefaultRegistry().ForPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	src, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return &fileSource{Source: src, f: f}, nil
}

// LoadFile reads the whole of path into memory, converted to the given
// sample rate and channel count. A zero rate or channel count keeps the
// file's own value.
//
// The result never touches the disk again, so it can feed a real-time
// stream directly.
func LoadFile(path string, sampleRate, channels int) (*audio.PCMBuffer, error) {
	src, err := OpenFile(path)
	if err != nil {
		return nil, err
	}

	conformed := audio.Conform(src, sampleRate, channels)
	defer conformed.Close()

	buf, err := audio.Load(conformed)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	return buf, nil
}
