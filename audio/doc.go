// SPDX-License-Identifier: EPL-2.0

// Package audio provides the PCM source primitives used to feed a duplex stream.
//
// This package contains:
//   - Source interface for 16-bit interleaved audio input
//   - Registry mapping file formats to decoders
//   - Resampler for sample rate conversion
//   - ChannelMapper for downmixing and upmixing
//   - PCMBuffer, an in-memory Source, plus ReadAll and Load
//   - Conform, which chains the above to reach a target format
//
// # Source Interface
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadPCM(dst []int16) (int, error)
//	    Close() error
//	}
//
// Samples stay in the 16-bit integer domain end to end, so a 16-bit WAV file
// loaded through a decoder and played back through a stream reproduces its
// samples exactly.
//
// # Real-time use
//
// Decoders read from files and may block. A stream callback should read from
// a PCMBuffer filled at setup time instead:
//
//	src, _ := wav.Decoder{}.Decode(file)
//	buf, _ := audio.Load(audio.Conform(src, 16000, 2))
//	n, err := buf.ReadPCM(chunk) // no I/O
//
// # Error Handling
//
// ReadPCM returns io.EOF when no more data is available, possibly together
// with the last samples:
//
//	for {
//	    n, err := source.ReadPCM(buf)
//	    // use buf[:n]
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	}
package audio
