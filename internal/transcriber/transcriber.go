package transcriber

import "context"

// Revision is one update from a transcript source. Partials preview the
// next final and may be superseded; finals are authoritative.
type Revision struct {
	IsFinal bool
	Text    string
}

type ResultReceiver interface {
	OnRevision(rev Revision)
	OnError(err error)
}

// StreamWriter feeds audio into a running recognition stream. Done is closed
// when the stream ends, whether through Close or on its own.
type StreamWriter interface {
	Write(pcm []byte) error
	Close() error
	Done() <-chan struct{}
}

type StreamRequest struct {
	SessionID string
	Language  string
	// Token is a single-use credential; empty for sources that do not need one.
	Token string
}

type Capabilities struct {
	NeedsToken bool
	NeedsAudio bool
}

type Transcriber interface {
	Capabilities() Capabilities
	StartStreaming(ctx context.Context, req StreamRequest, receiver ResultReceiver) (StreamWriter, error)
}
