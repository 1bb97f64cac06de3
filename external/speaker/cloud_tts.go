package speaker

import (
	"context"
	"encoding/base64"
	"fmt"

	"cloud.google.com/go/auth/credentials"
	audioimpl "github.com/foxseedlab/tsuyaku/external/audio"
	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/foxseedlab/tsuyaku/internal/speaker"
	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"
)

// CloudTTSSynthesizer renders utterances with Cloud Text-to-Speech as LINEAR16.
type CloudTTSSynthesizer struct {
	svc *texttospeech.Service
}

func NewCloudTTSSynthesizer(svc *texttospeech.Service) *CloudTTSSynthesizer {
	return &CloudTTSSynthesizer{svc: svc}
}

func NewCloudTTSService(ctx context.Context, credentialsJSON string, opts ...option.ClientOption) (*texttospeech.Service, error) {
	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(credentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}
	return texttospeech.NewService(ctx, append([]option.ClientOption{option.WithAuthCredentials(creds)}, opts...)...)
}

func (s *CloudTTSSynthesizer) Synthesize(ctx context.Context, u speaker.Utterance, sampleRate int) (audio.PCM, error) {
	resp, err := s.svc.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: u.Text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: u.Locale,
			Name:         u.Voice,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding:   "LINEAR16",
			SampleRateHertz: int64(sampleRate),
			SpeakingRate:    u.Rate,
			Pitch:           u.Pitch,
			VolumeGainDb:    u.Volume,
		},
	}).Context(ctx).Do()
	if err != nil {
		return audio.PCM{}, err
	}
	raw, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("decode audio content: %w", err)
	}
	pcm, err := audioimpl.DecodeWAV(raw)
	if err != nil {
		return audio.PCM{}, err
	}
	return audioimpl.Convert(pcm, sampleRate, pcm.Channels), nil
}
