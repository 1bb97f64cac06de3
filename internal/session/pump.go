package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/audio"
)

const pumpStatsInterval = 5 * time.Second

// pumpAudio copies capture frames into whichever transcript stream is current.
// Writes to a stream that has just ended are skipped; the supervisor replaces
// it.
func (c *Controller) pumpAudio(ctx context.Context, rs *runningSession) {
	buf := make([]byte, audio.CaptureFrameBytes)
	var (
		readFrames    int64
		silentFrames  int64
		writtenFrames int64
		skippedFrames int64
	)
	lastStats := time.Now()
	slog.Info("audio pump started", "session_id", rs.id)
	defer func() {
		slog.Info("audio pump stopped",
			"session_id", rs.id,
			"read_frames", readFrames,
			"silent_frames", silentFrames,
			"written_frames", writtenFrames,
			"skipped_frames", skippedFrames)
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		n, err := rs.capture.ReadPCM(buf)
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("failed to read audio capture", "error", err, "session_id", rs.id)
			}
			return
		}
		readFrames++
		if time.Since(lastStats) >= pumpStatsInterval {
			lastStats = time.Now()
			slog.Info("audio pump stats",
				"session_id", rs.id,
				"read_frames", readFrames,
				"silent_frames", silentFrames,
				"written_frames", writtenFrames,
				"skipped_frames", skippedFrames)
		}
		if n == 0 {
			silentFrames++
			continue
		}
		w := rs.currentWriter()
		if w == nil {
			skippedFrames++
			continue
		}
		if err := w.Write(buf[:n]); err != nil {
			skippedFrames++
			slog.Debug("failed to write pcm to transcript stream", "error", err, "session_id", rs.id, "pcm_bytes", n)
			continue
		}
		writtenFrames++
	}
}
