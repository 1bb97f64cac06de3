package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/youpy/go-wav"
)

const wavReadChunk = 4096

// DecodeWAV reads 16-bit mono or stereo PCM from a RIFF/WAVE payload.
func DecodeWAV(data []byte) (audio.PCM, error) {
	r := wav.NewReader(bytes.NewReader(data))
	format, err := r.Format()
	if err != nil {
		return audio.PCM{}, fmt.Errorf("read wav format: %w", err)
	}
	if format.AudioFormat != wav.AudioFormatPCM || format.BitsPerSample != 16 {
		return audio.PCM{}, fmt.Errorf("unsupported wav encoding: format %d, %d bits", format.AudioFormat, format.BitsPerSample)
	}
	if format.NumChannels < 1 || format.NumChannels > 2 {
		return audio.PCM{}, fmt.Errorf("unsupported wav channel count: %d", format.NumChannels)
	}

	pcm := audio.PCM{SampleRate: int(format.SampleRate), Channels: int(format.NumChannels)}
	for {
		samples, err := r.ReadSamples(wavReadChunk)
		for _, s := range samples {
			for c := 0; c < pcm.Channels; c++ {
				pcm.Samples = append(pcm.Samples, int16(s.Values[c]))
			}
		}
		if errors.Is(err, io.EOF) {
			return pcm, nil
		}
		if err != nil {
			return audio.PCM{}, fmt.Errorf("read wav samples: %w", err)
		}
	}
}
