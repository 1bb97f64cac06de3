package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/events"
	"github.com/foxseedlab/tsuyaku/internal/speaker"
	"github.com/foxseedlab/tsuyaku/internal/translator"
)

type fakeTranslator struct {
	mu          sync.Mutex
	fail        map[string]bool
	panics      map[string]bool
	block       map[string]bool
	delay       time.Duration
	inflight    int
	maxInflight int
	calls       []string
}

func (f *fakeTranslator) Translate(ctx context.Context, req translator.Request) (string, error) {
	f.mu.Lock()
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	f.calls = append(f.calls, req.Text)
	fail, panics, block, delay := f.fail[req.Text], f.panics[req.Text], f.block[req.Text], f.delay
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	if panics {
		panic("translator exploded")
	}
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if fail {
		return "", errors.New("provider unavailable")
	}
	return strings.ToUpper(req.Text), nil
}

func (f *fakeTranslator) max() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInflight
}

type fakeSpeaker struct {
	mu          sync.Mutex
	hang        map[string]bool
	fail        map[string]bool
	delay       time.Duration
	release     chan struct{}
	inflight    int
	maxInflight int
	started     []string
}

func newFakeSpeaker(t *testing.T) *fakeSpeaker {
	s := &fakeSpeaker{release: make(chan struct{})}
	t.Cleanup(func() { close(s.release) })
	return s
}

func (f *fakeSpeaker) Speak(ctx context.Context, u speaker.Utterance) error {
	f.mu.Lock()
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	f.started = append(f.started, u.Text)
	hang, fail, delay := f.hang[u.Text], f.fail[u.Text], f.delay
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	if hang {
		// Never signals on its own, like a speech engine that drops its callback.
		<-f.release
		return nil
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail {
		return errors.New("audio device lost")
	}
	return nil
}

func (f *fakeSpeaker) spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

func (f *fakeSpeaker) max() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInflight
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) count(kind events.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recordingPublisher) find(kind events.Kind) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startPipeline(t *testing.T, cfg Config, tr translator.Translator, sp speaker.Speaker) (*Pipeline, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	p := New(cfg, tr, sp, pub, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return p, pub
}

func testConfig(phraseSize int) Config {
	return Config{
		PhraseSize:         phraseSize,
		TargetLanguage:     "en",
		TargetLocale:       "en-US",
		TranslationTimeout: time.Second,
		PlaybackTimeout:    time.Second,
		RecentTranslations: 3,
	}
}

func TestPipeline_TranslationFailureDropsPhraseAndContinues(t *testing.T) {
	tr := &fakeTranslator{fail: map[string]bool{"a b": true}}
	sp := newFakeSpeaker(t)
	p, pub := startPipeline(t, testConfig(2), tr, sp)

	p.Begin("s1", "ja")
	p.Accept(final("a b c d"))

	waitFor(t, func() bool { return pub.count(events.KindPlaybackCompleted) == 1 })

	if got := sp.spoken(); len(got) != 1 || got[0] != "C D" {
		t.Fatalf("expected only the second phrase to be spoken, got %q", got)
	}
	dropped := pub.find(events.KindPhraseDropped)
	if len(dropped) != 1 || dropped[0].Seq != 1 || dropped[0].SessionID != "s1" {
		t.Fatalf("expected phrase 1 to be dropped, got %+v", dropped)
	}
	snap := p.Snapshot()
	if len(snap.PhraseQueue) != 0 || len(snap.TranslatedQueue) != 0 {
		t.Fatalf("expected drained queues, got %+v", snap)
	}
	if len(snap.Recent) != 1 || snap.Recent[0].Text != "C D" {
		t.Fatalf("expected failed phrase to be absent from recent, got %+v", snap.Recent)
	}
}

func TestPipeline_PanickingTranslatorDoesNotStall(t *testing.T) {
	tr := &fakeTranslator{panics: map[string]bool{"a b": true}}
	sp := newFakeSpeaker(t)
	p, pub := startPipeline(t, testConfig(2), tr, sp)

	p.Begin("s1", "ja")
	p.Accept(final("a b c d"))

	waitFor(t, func() bool { return pub.count(events.KindPlaybackCompleted) == 1 })
	if pub.count(events.KindPhraseDropped) != 1 {
		t.Fatal("expected the panicking call to drop its phrase")
	}
}

func TestPipeline_PlaybackTimeoutAdvances(t *testing.T) {
	cfg := testConfig(2)
	cfg.PlaybackTimeout = 50 * time.Millisecond
	tr := &fakeTranslator{}
	sp := newFakeSpeaker(t)
	sp.hang = map[string]bool{"A B": true}
	p, pub := startPipeline(t, cfg, tr, sp)

	p.Begin("s1", "ja")
	p.Accept(final("a b c d"))

	waitFor(t, func() bool { return pub.count(events.KindPlaybackCompleted) == 1 })

	timedOut := pub.find(events.KindPlaybackTimedOut)
	if len(timedOut) != 1 || timedOut[0].Seq != 1 {
		t.Fatalf("expected phrase 1 to time out, got %+v", timedOut)
	}
	if got := sp.spoken(); len(got) != 2 || got[1] != "C D" {
		t.Fatalf("expected playback to advance to the second phrase, got %q", got)
	}
	if snap := p.Snapshot(); snap.Display != "C D" {
		t.Fatalf("expected display to show the second phrase, got %q", snap.Display)
	}
}

func TestPipeline_PlaybackFailureAdvances(t *testing.T) {
	tr := &fakeTranslator{}
	sp := newFakeSpeaker(t)
	sp.fail = map[string]bool{"A B": true}
	p, pub := startPipeline(t, testConfig(2), tr, sp)

	p.Begin("s1", "ja")
	p.Accept(final("a b c d"))

	waitFor(t, func() bool { return pub.count(events.KindPlaybackCompleted) == 1 })
	if pub.count(events.KindPlaybackFailed) != 1 {
		t.Fatal("expected one failed playback")
	}
}

func TestPipeline_SingleFlightPreservesOrder(t *testing.T) {
	tr := &fakeTranslator{delay: 5 * time.Millisecond}
	sp := newFakeSpeaker(t)
	sp.delay = 5 * time.Millisecond
	p, pub := startPipeline(t, testConfig(1), tr, sp)

	p.Begin("s1", "ja")
	p.Accept(partial("a b c"))
	p.Accept(final("a b c d e f"))

	waitFor(t, func() bool { return pub.count(events.KindPlaybackCompleted) == 6 })

	if tr.max() != 1 {
		t.Fatalf("expected at most one translation in flight, saw %d", tr.max())
	}
	if sp.max() != 1 {
		t.Fatalf("expected at most one playback in flight, saw %d", sp.max())
	}
	want := []string{"A", "B", "C", "D", "E", "F"}
	got := sp.spoken()
	if len(got) != len(want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("playback %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestPipeline_RecentAndDisplay(t *testing.T) {
	tr := &fakeTranslator{}
	sp := newFakeSpeaker(t)
	p, pub := startPipeline(t, testConfig(1), tr, sp)

	p.Begin("s1", "ja")
	p.Accept(final("a b c d e"))

	waitFor(t, func() bool { return pub.count(events.KindPlaybackCompleted) == 5 })

	snap := p.Snapshot()
	if snap.Display != "E" {
		t.Fatalf("expected display E, got %q", snap.Display)
	}
	if len(snap.Recent) != 3 {
		t.Fatalf("expected 3 recent translations, got %+v", snap.Recent)
	}
	for i, want := range []string{"E", "D", "C"} {
		if snap.Recent[i].Text != want {
			t.Fatalf("recent %d: expected %q, got %q", i, want, snap.Recent[i].Text)
		}
	}
	if snap.Recent[0].Locale != "en-US" || snap.Recent[0].Source != "e" {
		t.Fatalf("unexpected recent entry: %+v", snap.Recent[0])
	}
}

func TestPipeline_BeginDiscardsInFlightWork(t *testing.T) {
	tr := &fakeTranslator{block: map[string]bool{"a b": true}}
	sp := newFakeSpeaker(t)
	p, pub := startPipeline(t, testConfig(2), tr, sp)

	p.Begin("s1", "ja")
	p.Accept(final("a b c d"))
	waitFor(t, func() bool { return p.Snapshot().TranslationStage == StageDraining.String() })

	p.Begin("s2", "ja")

	snap := p.Snapshot()
	if len(snap.PhraseQueue) != 0 || len(snap.TranslatedQueue) != 0 {
		t.Fatalf("expected empty queues after reset, got %+v", snap)
	}
	if snap.TranslationStage != "idle" || snap.PlaybackStage != "idle" {
		t.Fatalf("expected idle stages after reset, got %s/%s", snap.TranslationStage, snap.PlaybackStage)
	}
	if snap.Display != "" || len(snap.Recent) != 0 {
		t.Fatalf("expected cleared display and history, got %+v", snap)
	}

	p.Accept(final("x y"))
	waitFor(t, func() bool { return pub.count(events.KindPlaybackCompleted) == 1 })

	if got := sp.spoken(); len(got) != 1 || got[0] != "X Y" {
		t.Fatalf("expected only the new session to be spoken, got %q", got)
	}
	snap = p.Snapshot()
	if len(snap.Recent) != 1 || snap.Recent[0].Seq != 1 {
		t.Fatalf("expected sequence to restart for the new session, got %+v", snap.Recent)
	}
	completed := pub.find(events.KindPlaybackCompleted)
	if completed[0].SessionID != "s2" {
		t.Fatalf("expected completion for s2, got %s", completed[0].SessionID)
	}
}

func TestPipeline_BeginIsIdempotent(t *testing.T) {
	p, _ := startPipeline(t, testConfig(2), &fakeTranslator{}, newFakeSpeaker(t))

	p.Begin("s1", "ja")
	first := p.Snapshot()
	p.Begin("s1", "ja")
	second := p.Snapshot()

	if first.Display != second.Display ||
		len(first.PhraseQueue) != len(second.PhraseQueue) ||
		len(first.Recent) != len(second.Recent) ||
		first.TranslationStage != second.TranslationStage {
		t.Fatalf("expected identical state, got %+v and %+v", first, second)
	}
}

func TestPipeline_FlushDrainsShortPhrase(t *testing.T) {
	sp := newFakeSpeaker(t)
	p, pub := startPipeline(t, testConfig(10), &fakeTranslator{}, sp)

	p.Begin("s1", "ja")
	p.Accept(partial("hello there"))
	p.Flush()

	waitFor(t, func() bool { return pub.count(events.KindPlaybackCompleted) == 1 })
	if got := sp.spoken(); len(got) != 1 || got[0] != "HELLO THERE" {
		t.Fatalf("expected flushed phrase to be spoken, got %q", got)
	}
	queued := pub.find(events.KindPhraseQueued)
	if len(queued) != 1 || queued[0].SourceLanguage != "ja" {
		t.Fatalf("expected one queued event in ja, got %+v", queued)
	}
}

func TestPipeline_PublisherErrorsDoNotStall(t *testing.T) {
	tr := &fakeTranslator{}
	sp := newFakeSpeaker(t)
	failing := events.PublisherFunc(func(context.Context, events.Event) error {
		return errors.New("broker unavailable")
	})
	p := New(testConfig(2), tr, sp, failing, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	p.Begin("s1", "ja")
	p.Accept(final("a b c d"))

	waitFor(t, func() bool { return len(sp.spoken()) == 2 })
	if got := sp.spoken(); got[0] != "A B" || got[1] != "C D" {
		t.Fatalf("unexpected playback order: %q", got)
	}
}
