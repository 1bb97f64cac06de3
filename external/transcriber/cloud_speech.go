package transcriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/foxseedlab/tsuyaku/internal/transcriber"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const speechAPIEndpointPort = 443

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Location        string
	Model           string
}

// CloudSpeechTranscriber is the continuous recognizer. A stream ends on its
// own after the service's duration limit; the session restarts it.
type CloudSpeechTranscriber struct {
	projectID       string
	credentialsJSON string
	location        string
	model           string
}

func NewCloudSpeechTranscriber(cfg CloudSpeechConfig) *CloudSpeechTranscriber {
	return &CloudSpeechTranscriber{
		projectID:       cfg.ProjectID,
		credentialsJSON: cfg.CredentialsJSON,
		location:        strings.TrimSpace(cfg.Location),
		model:           strings.TrimSpace(cfg.Model),
	}
}

func (t *CloudSpeechTranscriber) Capabilities() transcriber.Capabilities {
	return transcriber.Capabilities{NeedsAudio: true}
}

func (t *CloudSpeechTranscriber) StartStreaming(ctx context.Context, req transcriber.StreamRequest, receiver transcriber.ResultReceiver) (transcriber.StreamWriter, error) {
	slog.Info("starting cloud speech streaming", "session_id", req.SessionID, "location", t.location, "language", req.Language, "model", t.model)

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(t.credentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}

	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if t.location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", t.location, speechAPIEndpointPort)))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	if err := stream.Send(t.configRequest(req.Language)); err != nil {
		_ = stream.CloseSend()
		_ = client.Close()
		return nil, err
	}
	slog.Info("cloud speech stream initialized", "session_id", req.SessionID)

	w := &streamWriter{
		sessionID: req.SessionID,
		stream:    stream,
		closeFn:   client.Close,
		done:      make(chan struct{}),
	}
	go w.receive(receiver)
	return w, nil
}

func (t *CloudSpeechTranscriber) configRequest(language string) *speechpb.StreamingRecognizeRequest {
	return &speechpb.StreamingRecognizeRequest{
		Recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", t.projectID, t.location),
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Model:         t.model,
					LanguageCodes: []string{language},
					DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
						ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
							Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
							SampleRateHertz:   audio.CaptureSampleRate,
							AudioChannelCount: audio.CaptureChannels,
						},
					},
					Features: &speechpb.RecognitionFeatures{EnableAutomaticPunctuation: true},
				},
				StreamingFeatures: &speechpb.StreamingRecognitionFeatures{InterimResults: true},
			},
		},
	}
}

type streamWriter struct {
	sessionID string

	mu      sync.Mutex
	closed  bool
	stream  speechpb.Speech_StreamingRecognizeClient
	closeFn func() error

	done     chan struct{}
	doneOnce sync.Once
}

func (w *streamWriter) Write(pcm []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return io.ErrClosedPipe
	}
	return w.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_Audio{
			Audio: pcm,
		},
	})
}

func (w *streamWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.stream.CloseSend()
	if cerr := w.closeFn(); err == nil {
		err = cerr
	}
	w.markDone()
	return err
}

func (w *streamWriter) Done() <-chan struct{} {
	return w.done
}

func (w *streamWriter) markDone() {
	w.doneOnce.Do(func() { close(w.done) })
}

func (w *streamWriter) receive(receiver transcriber.ResultReceiver) {
	defer w.markDone()
	for {
		resp, err := w.stream.Recv()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || status.Code(err) == codes.Canceled:
				slog.Info("cloud speech receive loop stopped", "session_id", w.sessionID, "reason", err.Error())
			case isExpectedStreamEnd(err):
				slog.Info("cloud speech stream reached its duration limit", "session_id", w.sessionID, "reason", err.Error())
			default:
				receiver.OnError(err)
			}
			return
		}
		for _, rev := range revisionsFromResponse(resp) {
			receiver.OnRevision(rev)
		}
	}
}

// revisionsFromResponse emits one final per final result, or one partial
// joining every interim result of the response.
func revisionsFromResponse(resp *speechpb.StreamingRecognizeResponse) []transcriber.Revision {
	var (
		revisions []transcriber.Revision
		interim   []string
	)
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		text := strings.TrimSpace(alts[0].GetTranscript())
		if text == "" {
			continue
		}
		if result.GetIsFinal() {
			revisions = append(revisions, transcriber.Revision{IsFinal: true, Text: text})
			continue
		}
		interim = append(interim, text)
	}
	if len(revisions) == 0 && len(interim) > 0 {
		revisions = append(revisions, transcriber.Revision{Text: strings.Join(interim, " ")})
	}
	return revisions
}

// isExpectedStreamEnd matches the aborts the service sends when a stream
// reaches its maximum duration or sits idle.
func isExpectedStreamEnd(err error) bool {
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Aborted {
		return false
	}
	msg := strings.ToLower(st.Message())
	return strings.Contains(msg, "max duration of 5 minutes") ||
		strings.Contains(msg, "stream timed out after receiving no more client requests")
}
