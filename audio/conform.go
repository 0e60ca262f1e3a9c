// SPDX-License-Identifier: EPL-2.0

package audio

// Conform adapts src to the given sample rate and channel count.
//
// This function creates a processing pipeline:
//  1. Downmixes first when reducing the channel count, so fewer channels are resampled
//  2. Resamples to rate using cubic interpolation when the rates differ
//  3. Upmixes last when increasing the channel count
//
// A zero rate or channel count keeps the source's own value. When nothing
// needs to change src is returned as is.
func Conform(src Source, rate, channels int) Source {
	if rate <= 0 {
		rate = src.SampleRate()
	}
	if channels <= 0 {
		channels = src.Channels()
	}

	out := src
	switch {
	case channels == 1 && out.Channels() > 1:
		out = NewMonoMixer(out)
	case channels < out.Channels():
		out = NewChannelMapper(out, channels)
	}
	if rate != out.SampleRate() {
		out = NewResampler(out, rate)
	}
	if channels != out.Channels() {
		out = NewChannelMapper(out, channels)
	}

	return out
}
