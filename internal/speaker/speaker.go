package speaker

import (
	"context"
	"fmt"

	"github.com/foxseedlab/tsuyaku/internal/audio"
)

// Utterance is one playback request. Rate is a speaking-rate multiplier,
// Pitch is in semitones and Volume is a gain in dB.
type Utterance struct {
	Text   string
	Locale string
	Voice  string
	Rate   float64
	Pitch  float64
	Volume float64
}

// Speaker plays an utterance and returns nil on completion or an error.
// Implementations may block indefinitely; callers bound the wait.
type Speaker interface {
	Speak(ctx context.Context, u Utterance) error
}

type Synthesizer interface {
	Synthesize(ctx context.Context, u Utterance, sampleRate int) (audio.PCM, error)
}

type synthesizingSpeaker struct {
	synth  Synthesizer
	player audio.Player
}

func NewSynthesizingSpeaker(synth Synthesizer, player audio.Player) Speaker {
	return &synthesizingSpeaker{synth: synth, player: player}
}

func (s *synthesizingSpeaker) Speak(ctx context.Context, u Utterance) error {
	pcm, err := s.synth.Synthesize(ctx, u, s.player.SampleRate())
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	if err := s.player.Play(ctx, pcm); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	return nil
}
