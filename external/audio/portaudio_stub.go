//go:build !portaudio

package audio

import (
	"context"

	"github.com/foxseedlab/tsuyaku/internal/audio"
)

func NewPortAudioCapture() (audio.Capture, error) {
	return nil, audio.ErrCaptureUnavailable
}

type PortAudioPlayer struct {
	sampleRate int
}

func NewPortAudioPlayer(sampleRate int) *PortAudioPlayer {
	return &PortAudioPlayer{sampleRate: sampleRate}
}

func (p *PortAudioPlayer) SampleRate() int {
	return p.sampleRate
}

func (p *PortAudioPlayer) Play(_ context.Context, _ audio.PCM) error {
	return audio.ErrPlaybackUnavailable
}
