package transcriber

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/foxseedlab/tsuyaku/internal/transcriber"
)

func appendLine(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestFileSource_FollowsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.txt")
	if err := os.WriteFile(path, []byte("old line before start\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	src := NewFileSource(path)
	if caps := src.Capabilities(); caps.NeedsAudio || caps.NeedsToken {
		t.Fatalf("unexpected capabilities: %+v", caps)
	}
	recv := &collectingReceiver{}
	w, err := src.StartStreaming(context.Background(), transcriber.StreamRequest{SessionID: "s1"}, recv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Close()

	appendLine(t, path, "~ the quick\n\n")
	appendLine(t, path, "the quick brown fox")
	appendLine(t, path, "\n")

	waitFor(t, func() bool { return len(recv.snapshot()) == 2 })
	revs := recv.snapshot()
	if revs[0].IsFinal || revs[0].Text != "the quick" {
		t.Fatalf("unexpected partial: %+v", revs[0])
	}
	if !revs[1].IsFinal || revs[1].Text != "the quick brown fox" {
		t.Fatalf("unexpected final: %+v", revs[1])
	}
}

func TestFileSource_EndsWhenFileRemoved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := NewFileSource(path).StartStreaming(context.Background(), transcriber.StreamRequest{SessionID: "s1"}, &collectingReceiver{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	waitClosed(t, w.Done())
	if err := w.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}

func TestFileSource_EndsWhenFileRenamed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transcript.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := NewFileSource(path).StartStreaming(context.Background(), transcriber.StreamRequest{SessionID: "s1"}, &collectingReceiver{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Close()
	if err := os.Rename(path, filepath.Join(dir, "transcript.old")); err != nil {
		t.Fatalf("rename: %v", err)
	}
	waitClosed(t, w.Done())
}

func TestFileSource_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transcript.txt")
	sibling := filepath.Join(dir, "other.txt")
	for _, p := range []string{path, sibling} {
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	recv := &collectingReceiver{}
	w, err := NewFileSource(path).StartStreaming(context.Background(), transcriber.StreamRequest{SessionID: "s1"}, recv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Close()

	appendLine(t, sibling, "not ours\n")
	if err := os.Remove(sibling); err != nil {
		t.Fatalf("remove sibling: %v", err)
	}
	appendLine(t, path, "ours\n")

	waitFor(t, func() bool { return len(recv.snapshot()) == 1 })
	if revs := recv.snapshot(); revs[0].Text != "ours" {
		t.Fatalf("unexpected revision: %+v", revs[0])
	}
	select {
	case <-w.Done():
		t.Fatal("stream ended because of a sibling file")
	default:
	}
}

func TestFileSource_MissingFile(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.txt")).StartStreaming(context.Background(), transcriber.StreamRequest{}, &collectingReceiver{})
	if err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestParseTranscriptLine(t *testing.T) {
	tests := []struct {
		line   string
		want   transcriber.Revision
		wantOK bool
	}{
		{line: "hello world", want: transcriber.Revision{IsFinal: true, Text: "hello world"}, wantOK: true},
		{line: "~hello", want: transcriber.Revision{Text: "hello"}, wantOK: true},
		{line: "  ~  ", wantOK: false},
		{line: "   ", wantOK: false},
	}
	for _, tt := range tests {
		got, ok := parseTranscriptLine(tt.line)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Fatalf("parseTranscriptLine(%q): expected %+v/%v, got %+v/%v", tt.line, tt.want, tt.wantOK, got, ok)
		}
	}
}
