package transcriber

import (
	"fmt"

	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/foxseedlab/tsuyaku/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Transcriber, error) {
		c := do.MustInvoke[*config.Config](i)
		switch c.TranscriptSource {
		case config.TranscriptSourceCloudSpeech:
			return NewCloudSpeechTranscriber(CloudSpeechConfig{
				ProjectID:       c.GoogleCloudProjectID,
				CredentialsJSON: c.GoogleCloudCredentialsJSON,
				Location:        c.GoogleCloudSpeechLocation,
				Model:           c.GoogleCloudSpeechModel,
			}), nil
		case config.TranscriptSourceRealtime:
			return NewRealtimeTranscriber(RealtimeConfig{
				ListenURL: c.RealtimeListenURL,
				Model:     c.RealtimeModel,
			}), nil
		case config.TranscriptSourceFile:
			return NewFileSource(c.TranscriptFilePath), nil
		default:
			return nil, fmt.Errorf("unsupported transcript source: %q", c.TranscriptSource)
		}
	})
}
