package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/events"
	"github.com/foxseedlab/tsuyaku/internal/metrics"
	"github.com/foxseedlab/tsuyaku/internal/translator"
)

// translatePhrase sends the head phrase to the translation provider. On
// success the result is appended to the translated queue; on any failure the
// phrase is dropped. Either way the head is removed and draining continues.
func (p *Pipeline) translatePhrase(ctx context.Context, ph Phrase, epoch uint64) {
	sessionID, sourceLanguage := p.session()
	req := translator.Request{
		Text:           ph.Text(),
		SourceLanguage: sourceLanguage,
		TargetLanguage: p.cfg.TargetLanguage,
	}

	start := time.Now()
	var translated string
	err := callSafely(func() error {
		callCtx := ctx
		if p.cfg.TranslationTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, p.cfg.TranslationTimeout)
			defer cancel()
		}
		var err error
		translated, err = p.translator.Translate(callCtx, req)
		return err
	})
	if err == nil && strings.TrimSpace(translated) == "" {
		err = fmt.Errorf("empty translation: %w", translator.ErrMalformedResponse)
	}
	elapsed := time.Since(start)

	result := TranslatedPhrase{Source: ph, Text: strings.TrimSpace(translated), Locale: p.cfg.TargetLocale}
	committed := p.translation.finish(epoch, func() {
		if err != nil {
			return
		}
		p.playback.queue.Push(result)
		p.recent.Add(result)
	})
	if !committed {
		slog.Debug("discarding translation from a previous session", "session_id", sessionID, "phrase_seq", ph.Seq)
		return
	}
	p.updateDepth()

	if err != nil {
		slog.Warn("translation failed; dropping phrase",
			"error", err,
			"session_id", sessionID,
			"phrase_seq", ph.Seq,
			"elapsed_ms", elapsed.Milliseconds())
		p.metrics.RecordTranslation(metrics.OutcomeFailed, elapsed.Seconds())
		p.publish(events.Event{
			Kind:           events.KindPhraseDropped,
			SessionID:      sessionID,
			Seq:            ph.Seq,
			SourceLanguage: sourceLanguage,
			TargetLanguage: p.cfg.TargetLanguage,
			SourceText:     req.Text,
			Error:          err.Error(),
		})
		return
	}

	slog.Debug("phrase translated", "session_id", sessionID, "phrase_seq", ph.Seq, "elapsed_ms", elapsed.Milliseconds())
	p.metrics.RecordTranslation(metrics.OutcomeOK, elapsed.Seconds())
	p.publish(events.Event{
		Kind:           events.KindPhraseTranslated,
		SessionID:      sessionID,
		Seq:            ph.Seq,
		SourceLanguage: sourceLanguage,
		TargetLanguage: p.cfg.TargetLanguage,
		SourceText:     req.Text,
		TranslatedText: result.Text,
		Locale:         result.Locale,
	})
	p.playback.kick()
}
