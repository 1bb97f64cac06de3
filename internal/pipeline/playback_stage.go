package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/events"
	"github.com/foxseedlab/tsuyaku/internal/metrics"
	"github.com/foxseedlab/tsuyaku/internal/speaker"
)

var ErrPlaybackTimeout = errors.New("playback did not signal completion before the timeout")

// playPhrase shows and speaks the head translation. The provider's
// completion or error races the playback timeout; whichever comes first
// removes the head so a silent provider cannot stall the queue.
func (p *Pipeline) playPhrase(ctx context.Context, tp TranslatedPhrase, epoch uint64) {
	sessionID, _ := p.session()
	if !p.playback.current(epoch, func() { p.setDisplay(tp.Text) }) {
		return
	}
	p.publish(events.Event{
		Kind:           events.KindPlaybackStarted,
		SessionID:      sessionID,
		Seq:            tp.Source.Seq,
		TranslatedText: tp.Text,
		Locale:         tp.Locale,
	})

	start := time.Now()
	err := p.speakWithTimeout(ctx, speaker.Utterance{
		Text:   tp.Text,
		Locale: tp.Locale,
		Voice:  p.cfg.Voice,
		Rate:   p.cfg.SpeechRate,
		Pitch:  p.cfg.SpeechPitch,
		Volume: p.cfg.SpeechVolume,
	})
	elapsed := time.Since(start)

	if !p.playback.finish(epoch, nil) {
		slog.Debug("discarding playback from a previous session", "session_id", sessionID, "phrase_seq", tp.Source.Seq)
		return
	}
	p.updateDepth()

	event := events.Event{
		SessionID:      sessionID,
		Seq:            tp.Source.Seq,
		TranslatedText: tp.Text,
		Locale:         tp.Locale,
	}
	switch {
	case err == nil:
		slog.Debug("playback completed", "session_id", sessionID, "phrase_seq", tp.Source.Seq, "elapsed_ms", elapsed.Milliseconds())
		p.metrics.RecordPlayback(metrics.OutcomeOK, elapsed.Seconds())
		event.Kind = events.KindPlaybackCompleted
	case errors.Is(err, ErrPlaybackTimeout):
		slog.Warn("playback timed out; advancing", "session_id", sessionID, "phrase_seq", tp.Source.Seq, "timeout", p.cfg.PlaybackTimeout.String())
		p.metrics.RecordPlayback(metrics.OutcomeTimedOut, elapsed.Seconds())
		event.Kind = events.KindPlaybackTimedOut
		event.Error = err.Error()
	default:
		slog.Warn("playback failed; advancing", "error", err, "session_id", sessionID, "phrase_seq", tp.Source.Seq)
		p.metrics.RecordPlayback(metrics.OutcomeFailed, elapsed.Seconds())
		event.Kind = events.KindPlaybackFailed
		event.Error = err.Error()
	}
	p.publish(event)
}

func (p *Pipeline) speakWithTimeout(ctx context.Context, u speaker.Utterance) error {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- callSafely(func() error {
			return p.speaker.Speak(callCtx, u)
		})
	}()

	timer := time.NewTimer(p.cfg.PlaybackTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrPlaybackTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
