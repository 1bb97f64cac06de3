package speaker

import (
	"context"
	"fmt"

	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/foxseedlab/tsuyaku/internal/speaker"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (speaker.Speaker, error) {
		c := do.MustInvoke[*config.Config](i)
		switch c.Speaker {
		case config.SpeakerLog:
			return NewLogSpeaker(), nil
		case config.SpeakerCloudTTS:
			player, err := do.InvokeNamed[audio.Player](i, playerName(c.SpeakerOutput))
			if err != nil {
				return nil, fmt.Errorf("resolve %s audio output: %w", c.SpeakerOutput, err)
			}
			svc, err := NewCloudTTSService(context.Background(), c.GoogleCloudCredentialsJSON)
			if err != nil {
				return nil, fmt.Errorf("create text-to-speech service: %w", err)
			}
			return speaker.NewSynthesizingSpeaker(NewCloudTTSSynthesizer(svc), player), nil
		default:
			return nil, fmt.Errorf("unsupported speaker: %q", c.Speaker)
		}
	})
}

func playerName(output string) string {
	if output == config.SpeakerOutputDiscord {
		return audio.PlayerDiscord
	}
	return audio.PlayerLocal
}
