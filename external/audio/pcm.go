package audio

import (
	"encoding/binary"
	"math"

	"github.com/foxseedlab/tsuyaku/internal/audio"
)

// Discord voice frames are 20 ms of 48 kHz stereo.
const (
	VoiceSampleRate   = 48000
	VoiceChannels     = 2
	voiceFrameMs      = 20
	VoiceFrameSamples = VoiceSampleRate * voiceFrameMs * VoiceChannels / 1000
)

// Convert resamples pcm to the given rate and channel count using linear
// interpolation. Downmixing averages the source channels.
func Convert(pcm audio.PCM, rate, channels int) audio.PCM {
	if pcm.SampleRate == rate && pcm.Channels == channels {
		return pcm
	}
	out := audio.PCM{SampleRate: rate, Channels: channels}
	srcFrames := pcm.Frames()
	if srcFrames == 0 || rate <= 0 || channels <= 0 || pcm.SampleRate <= 0 {
		return out
	}

	dstFrames := int(int64(srcFrames) * int64(rate) / int64(pcm.SampleRate))
	out.Samples = make([]int16, dstFrames*channels)
	step := float64(pcm.SampleRate) / float64(rate)
	for i := 0; i < dstFrames; i++ {
		pos := float64(i) * step
		idx := int(pos)
		frac := pos - float64(idx)
		next := min(idx+1, srcFrames-1)
		for c := 0; c < channels; c++ {
			a := channelValue(pcm, idx, c, channels)
			b := channelValue(pcm, next, c, channels)
			out.Samples[i*channels+c] = clampPCM(int32(math.Round(a + (b-a)*frac)))
		}
	}
	return out
}

func channelValue(pcm audio.PCM, frame, channel, dstChannels int) float64 {
	base := frame * pcm.Channels
	if dstChannels < pcm.Channels {
		var sum float64
		for k := 0; k < pcm.Channels; k++ {
			sum += float64(pcm.Samples[base+k])
		}
		return sum / float64(pcm.Channels)
	}
	if channel >= pcm.Channels {
		channel = pcm.Channels - 1
	}
	return float64(pcm.Samples[base+channel])
}

// SplitFrames cuts samples into frames of size, padding the last with silence.
func SplitFrames(samples []int16, size int) [][]int16 {
	if size <= 0 || len(samples) == 0 {
		return nil
	}
	frames := make([][]int16, 0, (len(samples)+size-1)/size)
	for off := 0; off < len(samples); off += size {
		frame := make([]int16, size)
		copy(frame, samples[off:])
		frames = append(frames, frame)
	}
	return frames
}

func clampPCM(v int32) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// putSamples writes little-endian samples into buf and returns the bytes written.
func putSamples(buf []byte, samples []int16) int {
	toWrite := min(len(buf)/2, len(samples))
	for i := 0; i < toWrite; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(samples[i]))
	}
	return toWrite * 2
}
