package transcriber

import (
	"errors"
	"testing"

	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func result(text string, final bool) *speechpb.StreamingRecognitionResult {
	return &speechpb.StreamingRecognitionResult{
		Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: text}},
		IsFinal:      final,
	}
}

func TestRevisionsFromResponse(t *testing.T) {
	interim := revisionsFromResponse(&speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{
			result("the quick brown", false),
			result(" fox", false),
			{IsFinal: false},
		},
	})
	if len(interim) != 1 || interim[0].IsFinal || interim[0].Text != "the quick brown fox" {
		t.Fatalf("unexpected interim revisions: %+v", interim)
	}

	final := revisionsFromResponse(&speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{
			result("the quick brown fox jumps", true),
			result("over", false),
		},
	})
	if len(final) != 1 || !final[0].IsFinal || final[0].Text != "the quick brown fox jumps" {
		t.Fatalf("unexpected final revisions: %+v", final)
	}

	if got := revisionsFromResponse(&speechpb.StreamingRecognizeResponse{}); len(got) != 0 {
		t.Fatalf("expected no revisions for an empty response, got %+v", got)
	}
}

func TestIsExpectedStreamEnd(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "duration limit", err: status.Error(codes.Aborted, "Exceeded max duration of 5 minutes"), want: true},
		{name: "idle", err: status.Error(codes.Aborted, "Stream timed out after receiving no more client requests."), want: true},
		{name: "other abort", err: status.Error(codes.Aborted, "something else"), want: false},
		{name: "unavailable", err: status.Error(codes.Unavailable, "Exceeded max duration of 5 minutes"), want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isExpectedStreamEnd(tt.err); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCloudSpeechCapabilities(t *testing.T) {
	caps := NewCloudSpeechTranscriber(CloudSpeechConfig{Location: " global "}).Capabilities()
	if !caps.NeedsAudio || caps.NeedsToken {
		t.Fatalf("unexpected capabilities: %+v", caps)
	}
}
