package audio

import (
	"context"
	"errors"
)

const (
	CaptureSampleRate = 16000
	CaptureChannels   = 1
	// CaptureFrameBytes holds 20 ms of 16-bit mono PCM at CaptureSampleRate.
	CaptureFrameBytes = CaptureSampleRate / 50 * CaptureChannels * 2
)

var (
	ErrCaptureUnavailable  = errors.New("audio capture is not available in this build")
	ErrOpusUnavailable     = errors.New("opus encoding is not available in this build")
	ErrPlaybackUnavailable = errors.New("local audio playback is not available in this build")
)

// Named players registered in the injector; the speaker picks one by the
// configured output.
const (
	PlayerLocal   = "audio.player.local"
	PlayerDiscord = "audio.player.discord"
)

// PCM is interleaved signed 16-bit audio.
type PCM struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

func (p PCM) Frames() int {
	if p.Channels <= 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// Capture reads little-endian LINEAR16 frames from an input device. ReadPCM
// blocks until a frame is available.
type Capture interface {
	ReadPCM(buf []byte) (int, error)
	Close() error
}

type CaptureFactory func() (Capture, error)

// Player renders PCM and returns once playback has finished.
type Player interface {
	SampleRate() int
	Play(ctx context.Context, pcm PCM) error
}

type OpusEncoder interface {
	Encode(pcm []int16) ([]byte, error)
}

type OpusEncoderFactory func(sampleRate, channels int) (OpusEncoder, error)
