package speaker

import (
	"context"
	"log/slog"

	"github.com/foxseedlab/tsuyaku/internal/speaker"
)

// LogSpeaker completes every utterance immediately after logging it.
type LogSpeaker struct{}

func NewLogSpeaker() *LogSpeaker {
	return &LogSpeaker{}
}

func (s *LogSpeaker) Speak(_ context.Context, u speaker.Utterance) error {
	slog.Info("speaking utterance", "text", u.Text, "locale", u.Locale, "voice", u.Voice)
	return nil
}
