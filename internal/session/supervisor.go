package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/foxseedlab/tsuyaku/internal/events"
	"github.com/foxseedlab/tsuyaku/internal/metrics"
	"github.com/foxseedlab/tsuyaku/internal/token"
	"github.com/foxseedlab/tsuyaku/internal/transcriber"
	"golang.org/x/time/rate"
)

var ErrRestartsExhausted = errors.New("transcript stream could not be restarted")

// supervise restarts the transcript stream whenever it ends while the session
// is still active. Restarts are spaced by the configured interval and the
// session is ended after too many consecutive failures.
func (c *Controller) supervise(ctx context.Context, rs *runningSession) {
	defer close(rs.done)
	limiter := rate.NewLimiter(rate.Every(c.cfg.RecognizerRestartInterval), 1)
	failures := 0

	for {
		writer := rs.currentWriter()
		select {
		case <-ctx.Done():
			return
		case <-writer.Done():
		}
		if ctx.Err() != nil {
			return
		}

		slog.Warn("transcript stream ended while session is active; restarting", "session_id", rs.id)
		if !c.withCurrent(rs.id, c.pipeline.Interrupt) {
			return
		}

		for {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			next, err := c.openStream(ctx, rs)
			if err == nil {
				failures = 0
				rs.setWriter(next)
				c.withCurrent(rs.id, func() { c.restarts++ })
				c.metrics.RecordStreamRestart(metrics.OutcomeOK)
				slog.Info("transcript stream restarted", "session_id", rs.id)
				break
			}
			if ctx.Err() != nil {
				return
			}
			failures++
			c.metrics.RecordStreamRestart(metrics.OutcomeFailed)
			slog.Warn("failed to restart transcript stream", "error", err, "session_id", rs.id, "consecutive_failures", failures)
			if errors.Is(err, token.ErrAuthentication) {
				c.abandon(rs, err)
				return
			}
			if failures >= c.cfg.RecognizerMaxRestarts {
				c.abandon(rs, fmt.Errorf("%w after %d attempts: %w", ErrRestartsExhausted, failures, err))
				return
			}
		}
	}
}

func (c *Controller) openStream(ctx context.Context, rs *runningSession) (transcriber.StreamWriter, error) {
	tok, err := c.fetchToken(ctx, c.transcriber.Capabilities())
	if err != nil {
		return nil, err
	}
	return c.transcriber.StartStreaming(ctx, transcriber.StreamRequest{
		SessionID: rs.id,
		Language:  rs.language,
		Token:     tok,
	}, &resultReceiver{controller: c, sessionID: rs.id})
}

// abandon ends the session from inside after a fault that cannot be
// recovered by restarting.
func (c *Controller) abandon(rs *runningSession, cause error) {
	if _, ok := c.deactivate(rs, cause); !ok {
		return
	}
	slog.Error("session ended by transcript stream fault", "error", cause, "session_id", rs.id)
	c.teardown(rs)
	c.publish(events.Event{
		Kind:           events.KindSessionStopped,
		SessionID:      rs.id,
		SourceLanguage: rs.language,
		Error:          cause.Error(),
	})
}
