package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/foxseedlab/tsuyaku/internal/events"
	"github.com/foxseedlab/tsuyaku/internal/metrics"
	"github.com/foxseedlab/tsuyaku/internal/pipeline"
	"github.com/foxseedlab/tsuyaku/internal/token"
	"github.com/foxseedlab/tsuyaku/internal/transcriber"
	"github.com/google/uuid"
)

var (
	ErrAlreadyActive = errors.New("session already active")
	ErrNotActive     = errors.New("no active session")
)

type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

// Pipeline is the part of the relay pipeline the controller drives.
type Pipeline interface {
	Begin(sessionID, sourceLanguage string)
	Accept(rev transcriber.Revision)
	Interrupt()
	Flush()
	Snapshot() pipeline.Snapshot
}

type Status struct {
	State          State             `json:"state"`
	SessionID      string            `json:"session_id,omitempty"`
	SourceLanguage string            `json:"source_language,omitempty"`
	TargetLanguage string            `json:"target_language"`
	StartedAt      *time.Time        `json:"started_at,omitempty"`
	Restarts       int               `json:"restarts"`
	AuthError      string            `json:"auth_error,omitempty"`
	LastError      string            `json:"last_error,omitempty"`
	Pipeline       pipeline.Snapshot `json:"pipeline"`
}

type Controller struct {
	cfg         *config.Config
	pipeline    Pipeline
	transcriber transcriber.Transcriber
	tokens      token.Provider
	newCapture  audio.CaptureFactory
	publisher   events.Publisher
	metrics     *metrics.Metrics

	// opMu serializes Start and Stop; mu guards the fields below it.
	opMu sync.Mutex

	mu             sync.Mutex
	state          State
	current        *runningSession
	sessionID      string
	sourceLanguage string
	startedAt      time.Time
	restarts       int
	authErr        error
	lastErr        error
}

type runningSession struct {
	id       string
	language string
	cancel   context.CancelFunc
	done     chan struct{}
	capture  audio.Capture

	mu     sync.Mutex
	writer transcriber.StreamWriter

	teardownOnce sync.Once
}

func (rs *runningSession) setWriter(w transcriber.StreamWriter) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.writer = w
}

func (rs *runningSession) currentWriter() transcriber.StreamWriter {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.writer
}

// NewController wires the lifecycle around p. tokens may be nil when the
// transcript source does not need one, and newCapture may be nil when it does
// not consume audio.
func NewController(cfg *config.Config, p Pipeline, stt transcriber.Transcriber, tokens token.Provider, newCapture audio.CaptureFactory, pub events.Publisher, m *metrics.Metrics) *Controller {
	if pub == nil {
		pub = events.PublisherFunc(func(context.Context, events.Event) error { return nil })
	}
	return &Controller{
		cfg:         cfg,
		pipeline:    p,
		transcriber: stt,
		tokens:      tokens,
		newCapture:  newCapture,
		publisher:   pub,
		metrics:     m,
		state:       StateIdle,
	}
}

// Start clears the pipeline and begins feeding it from the transcript source
// in sourceLanguage. An empty sourceLanguage selects the configured default.
func (c *Controller) Start(ctx context.Context, sourceLanguage string) (Status, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if sourceLanguage == "" {
		sourceLanguage = c.cfg.SourceLanguage
	}
	c.mu.Lock()
	if c.state == StateActive {
		c.mu.Unlock()
		return c.Status(), ErrAlreadyActive
	}
	c.mu.Unlock()

	id := uuid.NewString()
	slog.Info("start session requested", "session_id", id, "source_language", sourceLanguage)

	caps := c.transcriber.Capabilities()
	tok, err := c.fetchToken(ctx, caps)
	if err != nil {
		c.mu.Lock()
		c.authErr = err
		c.lastErr = err
		c.mu.Unlock()
		slog.Error("failed to obtain transcription token", "error", err, "session_id", id)
		return c.Status(), err
	}

	var capture audio.Capture
	if caps.NeedsAudio {
		if c.newCapture == nil {
			err = c.failStart(id, audio.ErrCaptureUnavailable)
			return c.Status(), err
		}
		capture, err = c.newCapture()
		if err != nil {
			err = c.failStart(id, fmt.Errorf("open audio capture: %w", err))
			return c.Status(), err
		}
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	rs := &runningSession{
		id:       id,
		language: sourceLanguage,
		cancel:   cancel,
		done:     make(chan struct{}),
		capture:  capture,
	}

	// Revisions that arrive before activation are dropped by the receiver;
	// audio sources see no audio until the pump starts below.
	writer, err := c.transcriber.StartStreaming(streamCtx, transcriber.StreamRequest{
		SessionID: id,
		Language:  sourceLanguage,
		Token:     tok,
	}, &resultReceiver{controller: c, sessionID: id})
	if err != nil {
		c.teardown(rs)
		close(rs.done)
		err = c.failStart(id, fmt.Errorf("start transcript stream: %w", err))
		return c.Status(), err
	}

	rs.setWriter(writer)
	c.mu.Lock()
	c.pipeline.Begin(id, sourceLanguage)
	c.state = StateActive
	c.current = rs
	c.sessionID = id
	c.sourceLanguage = sourceLanguage
	c.startedAt = time.Now()
	c.restarts = 0
	c.authErr = nil
	c.lastErr = nil
	c.mu.Unlock()

	slog.Info("session activated", "session_id", id, "source_language", sourceLanguage, "needs_audio", caps.NeedsAudio)

	c.metrics.SetSessionActive(true)
	c.publish(events.Event{Kind: events.KindSessionStarted, SessionID: id, SourceLanguage: sourceLanguage, TargetLanguage: c.cfg.TargetLanguage})

	go c.supervise(streamCtx, rs)
	if capture != nil {
		go c.pumpAudio(streamCtx, rs)
	}
	return c.Status(), nil
}

func (c *Controller) failStart(sessionID string, err error) error {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	slog.Error("failed to start session", "error", err, "session_id", sessionID)
	return err
}

// fetchToken requests a fresh single-use token. Every failure is reported as
// token.ErrAuthentication because the stream cannot open without one.
func (c *Controller) fetchToken(ctx context.Context, caps transcriber.Capabilities) (string, error) {
	if !caps.NeedsToken {
		return "", nil
	}
	if c.tokens == nil {
		return "", fmt.Errorf("%w: no token provider configured", token.ErrAuthentication)
	}
	tok, err := c.tokens.FetchToken(ctx)
	if err != nil {
		if errors.Is(err, token.ErrAuthentication) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", token.ErrAuthentication, err)
	}
	if tok.Value == "" {
		return "", fmt.Errorf("%w: empty token", token.ErrAuthentication)
	}
	return tok.Value, nil
}

// Stop detaches the transcript source. Words not yet grouped are flushed as a
// last phrase and queued work keeps draining.
func (c *Controller) Stop(_ context.Context) (Status, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	rs, ok := c.deactivate(nil, nil)
	if !ok {
		return c.Status(), ErrNotActive
	}
	slog.Info("session stopped", "session_id", rs.id)
	c.teardown(rs)
	c.publish(events.Event{Kind: events.KindSessionStopped, SessionID: rs.id, SourceLanguage: rs.language})
	return c.Status(), nil
}

// deactivate moves the controller to Idle if the current session is want (or
// any session when want is nil) and flushes the segmenter before any later
// Start can reset it.
func (c *Controller) deactivate(want *runningSession, cause error) (*runningSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rs := c.current
	if c.state != StateActive || rs == nil || (want != nil && rs != want) {
		return nil, false
	}
	c.state = StateIdle
	c.current = nil
	if cause != nil {
		c.lastErr = cause
		if errors.Is(cause, token.ErrAuthentication) {
			c.authErr = cause
		}
	}
	c.pipeline.Flush()
	c.metrics.SetSessionActive(false)
	return rs, true
}

func (c *Controller) teardown(rs *runningSession) {
	rs.teardownOnce.Do(func() {
		rs.cancel()
		if w := rs.currentWriter(); w != nil {
			if err := w.Close(); err != nil {
				slog.Debug("failed to close transcript stream", "error", err, "session_id", rs.id)
			}
		}
		if rs.capture != nil {
			if err := rs.capture.Close(); err != nil {
				slog.Warn("failed to close audio capture", "error", err, "session_id", rs.id)
			}
		}
	})
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	st := Status{
		State:          c.state,
		SessionID:      c.sessionID,
		SourceLanguage: c.sourceLanguage,
		TargetLanguage: c.cfg.TargetLanguage,
		Restarts:       c.restarts,
	}
	if !c.startedAt.IsZero() {
		startedAt := c.startedAt
		st.StartedAt = &startedAt
	}
	if c.authErr != nil {
		st.AuthError = c.authErr.Error()
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	c.mu.Unlock()
	st.Pipeline = c.pipeline.Snapshot()
	return st
}

// withCurrent runs fn under the state lock if sessionID is still active.
func (c *Controller) withCurrent(sessionID string, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive || c.current == nil || c.current.id != sessionID {
		return false
	}
	fn()
	return true
}

func (c *Controller) publish(e events.Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	if err := c.publisher.Publish(context.Background(), e); err != nil {
		slog.Warn("failed to publish session event", "error", err, "kind", e.Kind, "session_id", e.SessionID)
	}
}

type resultReceiver struct {
	controller *Controller
	sessionID  string
}

func (r *resultReceiver) OnRevision(rev transcriber.Revision) {
	accepted := r.controller.withCurrent(r.sessionID, func() {
		r.controller.pipeline.Accept(rev)
	})
	if !accepted {
		slog.Debug("ignoring revision for inactive session", "session_id", r.sessionID, "is_final", rev.IsFinal)
	}
}

func (r *resultReceiver) OnError(err error) {
	if errors.Is(err, context.Canceled) {
		slog.Info("transcript stream canceled", "session_id", r.sessionID)
		return
	}
	slog.Warn("transcript stream error", "error", err, "session_id", r.sessionID)
}
