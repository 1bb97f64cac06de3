package events

import (
	"context"
	"time"
)

type Kind string

const (
	KindPhraseQueued      Kind = "phrase.queued"
	KindPhraseTranslated  Kind = "phrase.translated"
	KindPhraseDropped     Kind = "phrase.dropped"
	KindPlaybackStarted   Kind = "playback.started"
	KindPlaybackCompleted Kind = "playback.completed"
	KindPlaybackFailed    Kind = "playback.failed"
	KindPlaybackTimedOut  Kind = "playback.timed_out"
	KindSessionStarted    Kind = "session.started"
	KindSessionStopped    Kind = "session.stopped"
)

type Event struct {
	Kind           Kind      `json:"kind"`
	SessionID      string    `json:"session_id,omitempty"`
	Seq            uint64    `json:"seq,omitempty"`
	SourceLanguage string    `json:"source_language,omitempty"`
	TargetLanguage string    `json:"target_language,omitempty"`
	SourceText     string    `json:"source_text,omitempty"`
	TranslatedText string    `json:"translated_text,omitempty"`
	Locale         string    `json:"locale,omitempty"`
	Error          string    `json:"error,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}
