package audio

import (
	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/samber/do/v2"
)

const localPlayerSampleRate = 24000

func RegisterDI(injector do.Injector) {
	do.ProvideValue(injector, audio.CaptureFactory(NewPortAudioCapture))
	do.ProvideValue(injector, audio.OpusEncoderFactory(NewOpusEncoder))
	do.ProvideNamed(injector, audio.PlayerLocal, func(i do.Injector) (audio.Player, error) {
		return NewPortAudioPlayer(localPlayerSampleRate), nil
	})
}
