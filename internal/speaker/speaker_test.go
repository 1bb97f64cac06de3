package speaker

import (
	"context"
	"errors"
	"testing"

	"github.com/foxseedlab/tsuyaku/internal/audio"
)

type mockSynth struct {
	gotRate int
	err     error
}

func (m *mockSynth) Synthesize(_ context.Context, _ Utterance, sampleRate int) (audio.PCM, error) {
	m.gotRate = sampleRate
	if m.err != nil {
		return audio.PCM{}, m.err
	}
	return audio.PCM{Samples: []int16{1, 2, 3}, SampleRate: sampleRate, Channels: 1}, nil
}

type mockPlayer struct {
	played []audio.PCM
	err    error
}

func (m *mockPlayer) SampleRate() int { return 24000 }
func (m *mockPlayer) Play(_ context.Context, pcm audio.PCM) error {
	m.played = append(m.played, pcm)
	return m.err
}

func TestSynthesizingSpeaker_PlaysAtPlayerRate(t *testing.T) {
	synth := &mockSynth{}
	player := &mockPlayer{}
	s := NewSynthesizingSpeaker(synth, player)

	if err := s.Speak(context.Background(), Utterance{Text: "hello", Locale: "en-US"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if synth.gotRate != 24000 {
		t.Fatalf("expected synthesis at 24000 Hz, got %d", synth.gotRate)
	}
	if len(player.played) != 1 || player.played[0].Frames() != 3 {
		t.Fatalf("unexpected playback: %+v", player.played)
	}
}

func TestSynthesizingSpeaker_SynthesisErrorSkipsPlayback(t *testing.T) {
	synth := &mockSynth{err: errors.New("quota")}
	player := &mockPlayer{}
	s := NewSynthesizingSpeaker(synth, player)

	if err := s.Speak(context.Background(), Utterance{Text: "hello"}); err == nil {
		t.Fatal("expected error")
	}
	if len(player.played) != 0 {
		t.Fatalf("expected no playback, got %d", len(player.played))
	}
}

func TestSynthesizingSpeaker_PlayerError(t *testing.T) {
	player := &mockPlayer{err: errors.New("device busy")}
	s := NewSynthesizingSpeaker(&mockSynth{}, player)

	if err := s.Speak(context.Background(), Utterance{Text: "hello"}); err == nil {
		t.Fatal("expected error")
	}
}
