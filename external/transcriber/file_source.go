package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/foxseedlab/tsuyaku/internal/transcriber"
	"github.com/fsnotify/fsnotify"
)

// partialLinePrefix marks a provisional line in a transcript file. Every
// other non-empty line is a final.
const partialLinePrefix = "~"

// FileSource follows a transcript file written by an external recognizer.
// Only lines appended after the stream starts are read. The stream ends when
// the file is removed or renamed.
//
// The parent directory is watched rather than the file: while the stream
// holds the file open, removing it only reports a chmod on the file itself.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: filepath.Clean(path)}
}

func (s *FileSource) Capabilities() transcriber.Capabilities {
	return transcriber.Capabilities{}
}

func (s *FileSource) StartStreaming(ctx context.Context, req transcriber.StreamRequest, receiver transcriber.ResultReceiver) (transcriber.StreamWriter, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open transcript file: %w", err)
	}
	offset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("seek transcript file: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		_ = f.Close()
		return nil, fmt.Errorf("watch transcript file: %w", err)
	}
	slog.Info("following transcript file", "session_id", req.SessionID, "path", s.path, "offset", offset)

	fs := &fileStream{
		sessionID: req.SessionID,
		path:      s.path,
		file:      f,
		offset:    offset,
		watcher:   watcher,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go fs.follow(ctx, receiver)
	return fs, nil
}

type fileStream struct {
	sessionID string
	path      string
	file      *os.File
	offset    int64
	pending   []byte
	watcher   *fsnotify.Watcher

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Write discards audio; the file is produced elsewhere.
func (s *fileStream) Write([]byte) error { return nil }

func (s *fileStream) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

func (s *fileStream) Done() <-chan struct{} { return s.done }

func (s *fileStream) follow(ctx context.Context, receiver transcriber.ResultReceiver) {
	defer close(s.done)
	defer s.file.Close()
	defer s.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Has(fsnotify.Write) {
				if err := s.readAppended(receiver); err != nil {
					receiver.OnError(err)
					return
				}
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) || (event.Has(fsnotify.Chmod) && !exists(s.path)) {
				slog.Info("transcript file went away; ending stream", "session_id", s.sessionID, "path", s.path, "op", event.Op.String())
				return
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			receiver.OnError(fmt.Errorf("watch transcript file: %w", err))
			return
		}
	}
}

func (s *fileStream) readAppended(receiver transcriber.ResultReceiver) error {
	info, err := s.file.Stat()
	if err != nil {
		return fmt.Errorf("stat transcript file: %w", err)
	}
	if info.Size() < s.offset {
		slog.Info("transcript file truncated; reading from start", "session_id", s.sessionID, "path", s.path)
		if _, err := s.file.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("seek transcript file: %w", err)
		}
		s.offset = 0
		s.pending = nil
	}

	buf := make([]byte, 4096)
	for {
		n, err := s.file.Read(buf)
		if n > 0 {
			s.offset += int64(n)
			s.pending = append(s.pending, buf[:n]...)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read transcript file: %w", err)
		}
	}

	for {
		i := bytes.IndexByte(s.pending, '\n')
		if i < 0 {
			return nil
		}
		line := string(s.pending[:i])
		s.pending = s.pending[i+1:]
		if rev, ok := parseTranscriptLine(line); ok {
			receiver.OnRevision(rev)
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

func parseTranscriptLine(line string) (transcriber.Revision, bool) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, partialLinePrefix) {
		text := strings.TrimSpace(strings.TrimPrefix(line, partialLinePrefix))
		return transcriber.Revision{Text: text}, text != ""
	}
	return transcriber.Revision{IsFinal: true, Text: line}, line != ""
}
