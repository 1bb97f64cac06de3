//go:build portaudio

package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/gordonklaus/portaudio"
)

const playerFramesPerBuffer = 1024

// PortAudioCapture reads 20 ms frames from the default input device through a
// blocking stream.
type PortAudioCapture struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	in     []int16
	closed bool
}

func NewPortAudioCapture() (audio.Capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to get default input device: %w", err)
	}
	slog.Info("using default audio input device",
		"device_name", device.Name,
		"default_sample_rate", device.DefaultSampleRate,
		"input_channels", device.MaxInputChannels)

	in := make([]int16, audio.CaptureFrameBytes/2)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: audio.CaptureChannels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      audio.CaptureSampleRate,
		FramesPerBuffer: len(in) / audio.CaptureChannels,
	}, in)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to start audio stream: %w", err)
	}
	return &PortAudioCapture{stream: stream, in: in}, nil
}

func (c *PortAudioCapture) ReadPCM(buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, io.EOF
	}
	if err := c.stream.Read(); err != nil {
		if !errors.Is(err, portaudio.InputOverflowed) {
			return 0, err
		}
		slog.Debug("audio input overflowed")
	}
	return putSamples(buf, c.in), nil
}

func (c *PortAudioCapture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.stream.Stop(); err != nil {
		slog.Error("failed to stop audio stream", "error", err)
	}
	err := c.stream.Close()
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}

// PortAudioPlayer renders PCM on the default output device. One utterance
// plays at a time.
type PortAudioPlayer struct {
	sampleRate int
	mu         sync.Mutex
}

func NewPortAudioPlayer(sampleRate int) *PortAudioPlayer {
	return &PortAudioPlayer{sampleRate: sampleRate}
}

func (p *PortAudioPlayer) SampleRate() int {
	return p.sampleRate
}

func (p *PortAudioPlayer) Play(ctx context.Context, pcm audio.PCM) error {
	if pcm.Frames() == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer func() {
		_ = portaudio.Terminate()
	}()

	out := make([]int16, playerFramesPerBuffer*pcm.Channels)
	stream, err := portaudio.OpenDefaultStream(0, pcm.Channels, float64(pcm.SampleRate), playerFramesPerBuffer, out)
	if err != nil {
		return fmt.Errorf("failed to open audio stream: %w", err)
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio stream: %w", err)
	}
	defer func() {
		if err := stream.Stop(); err != nil {
			slog.Error("failed to stop audio stream", "error", err)
		}
	}()

	for off := 0; off < len(pcm.Samples); off += len(out) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(out, pcm.Samples[off:])
		clear(out[n:])
		if err := stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			return fmt.Errorf("write audio stream: %w", err)
		}
	}
	return nil
}
