// Package pipeline implements the segmentation-and-relay core: transcript
// revisions are cut into phrases, translated one at a time and spoken one at
// a time, strictly in speech order.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/events"
	"github.com/foxseedlab/tsuyaku/internal/metrics"
	"github.com/foxseedlab/tsuyaku/internal/speaker"
	"github.com/foxseedlab/tsuyaku/internal/transcriber"
	"github.com/foxseedlab/tsuyaku/internal/translator"
)

const (
	queuePhrase     = "phrase"
	queueTranslated = "translated"

	DefaultPhraseSize         = 10
	DefaultPlaybackTimeout    = 15 * time.Second
	DefaultRecentTranslations = 3
)

type Config struct {
	PhraseSize         int
	TargetLanguage     string
	TargetLocale       string
	TranslationTimeout time.Duration
	PlaybackTimeout    time.Duration
	RecentTranslations int
	Voice              string
	SpeechRate         float64
	SpeechPitch        float64
	SpeechVolume       float64
}

type Pipeline struct {
	cfg        Config
	translator translator.Translator
	speaker    speaker.Speaker
	publisher  events.Publisher
	metrics    *metrics.Metrics

	segMu     sync.Mutex
	segmenter *Segmenter

	sessMu         sync.RWMutex
	sessionID      string
	sourceLanguage string

	translation *stage[Phrase]
	playback    *stage[TranslatedPhrase]

	viewMu  sync.RWMutex
	display string
	recent  *History
}

func New(cfg Config, tr translator.Translator, sp speaker.Speaker, pub events.Publisher, m *metrics.Metrics) *Pipeline {
	if pub == nil {
		pub = events.PublisherFunc(func(context.Context, events.Event) error { return nil })
	}
	if cfg.PhraseSize <= 0 {
		cfg.PhraseSize = DefaultPhraseSize
	}
	if cfg.PlaybackTimeout <= 0 {
		cfg.PlaybackTimeout = DefaultPlaybackTimeout
	}
	if cfg.RecentTranslations <= 0 {
		cfg.RecentTranslations = DefaultRecentTranslations
	}
	return &Pipeline{
		cfg:         cfg,
		translator:  tr,
		speaker:     sp,
		publisher:   pub,
		metrics:     m,
		segmenter:   NewSegmenter(cfg.PhraseSize),
		translation: newStage[Phrase](queuePhrase),
		playback:    newStage[TranslatedPhrase](queueTranslated),
		recent:      NewHistory(cfg.RecentTranslations),
	}
}

// Run drives both stages until ctx is done.
func (p *Pipeline) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.translation.run(ctx, p.translatePhrase)
	}()
	go func() {
		defer wg.Done()
		p.playback.run(ctx, p.playPhrase)
	}()
	wg.Wait()
}

// Begin discards everything from the previous session, including calls
// still in flight, and scopes new work to sessionID.
func (p *Pipeline) Begin(sessionID, sourceLanguage string) {
	p.segMu.Lock()
	defer p.segMu.Unlock()
	p.segmenter.Reset()
	p.translation.reset()
	p.playback.reset()

	p.sessMu.Lock()
	p.sessionID = sessionID
	p.sourceLanguage = sourceLanguage
	p.sessMu.Unlock()

	p.viewMu.Lock()
	p.display = ""
	p.viewMu.Unlock()
	p.recent.Clear()
	p.updateDepth()
}

func (p *Pipeline) Accept(rev transcriber.Revision) {
	p.metrics.RecordRevision(rev.IsFinal)
	p.segMu.Lock()
	defer p.segMu.Unlock()
	p.enqueueLocked(p.segmenter.OnRevision(rev))
}

// Interrupt closes the current utterance after the transcript stream ended
// without a final.
func (p *Pipeline) Interrupt() {
	p.segMu.Lock()
	defer p.segMu.Unlock()
	p.enqueueLocked(p.segmenter.Interrupt())
}

// Flush enqueues the remaining words as a last, possibly short, phrase.
// Queued work keeps draining afterwards.
func (p *Pipeline) Flush() {
	p.segMu.Lock()
	defer p.segMu.Unlock()
	p.enqueueLocked(p.segmenter.Flush())
}

func (p *Pipeline) enqueueLocked(phrases []Phrase) {
	if len(phrases) == 0 {
		return
	}
	p.translation.queue.Push(phrases...)
	p.metrics.RecordPhrases(len(phrases))
	p.updateDepth()
	sessionID, sourceLanguage := p.session()
	for _, ph := range phrases {
		p.publish(events.Event{
			Kind:           events.KindPhraseQueued,
			SessionID:      sessionID,
			Seq:            ph.Seq,
			SourceLanguage: sourceLanguage,
			SourceText:     ph.Text(),
		})
	}
	p.translation.kick()
}

func (p *Pipeline) session() (string, string) {
	p.sessMu.RLock()
	defer p.sessMu.RUnlock()
	return p.sessionID, p.sourceLanguage
}

func (p *Pipeline) publish(e events.Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	if err := p.publisher.Publish(context.Background(), e); err != nil {
		slog.Warn("failed to publish pipeline event", "error", err, "kind", e.Kind, "session_id", e.SessionID, "seq", e.Seq)
	}
}

func (p *Pipeline) updateDepth() {
	p.metrics.SetQueueDepth(queuePhrase, p.translation.queue.Len())
	p.metrics.SetQueueDepth(queueTranslated, p.playback.queue.Len())
}

func (p *Pipeline) setDisplay(text string) {
	p.viewMu.Lock()
	defer p.viewMu.Unlock()
	p.display = text
}

type RecentTranslation struct {
	Seq    uint64 `json:"seq"`
	Source string `json:"source"`
	Text   string `json:"text"`
	Locale string `json:"locale"`
}

type Snapshot struct {
	PhraseQueue      []string            `json:"phrase_queue"`
	TranslatedQueue  []string            `json:"translated_queue"`
	Display          string              `json:"display"`
	Recent           []RecentTranslation `json:"recent"`
	TranslationStage string              `json:"translation_stage"`
	PlaybackStage    string              `json:"playback_stage"`
}

func (p *Pipeline) Snapshot() Snapshot {
	phrases := p.translation.queue.Snapshot()
	translated := p.playback.queue.Snapshot()
	snap := Snapshot{
		PhraseQueue:      make([]string, 0, len(phrases)),
		TranslatedQueue:  make([]string, 0, len(translated)),
		Recent:           []RecentTranslation{},
		TranslationStage: p.translation.State().String(),
		PlaybackStage:    p.playback.State().String(),
	}
	for _, ph := range phrases {
		snap.PhraseQueue = append(snap.PhraseQueue, ph.Text())
	}
	for _, tp := range translated {
		snap.TranslatedQueue = append(snap.TranslatedQueue, tp.Text)
	}
	for _, tp := range p.recent.Items() {
		snap.Recent = append(snap.Recent, RecentTranslation{
			Seq:    tp.Source.Seq,
			Source: tp.Source.Text(),
			Text:   tp.Text,
			Locale: tp.Locale,
		})
	}
	p.viewMu.RLock()
	snap.Display = p.display
	p.viewMu.RUnlock()
	return snap
}
