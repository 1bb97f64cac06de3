package pipeline

import (
	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/foxseedlab/tsuyaku/internal/events"
	"github.com/foxseedlab/tsuyaku/internal/metrics"
	"github.com/foxseedlab/tsuyaku/internal/speaker"
	"github.com/foxseedlab/tsuyaku/internal/translator"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Pipeline, error) {
		cfg := do.MustInvoke[*config.Config](i)
		tr := do.MustInvoke[translator.Translator](i)
		sp := do.MustInvoke[speaker.Speaker](i)
		bus := do.MustInvoke[*events.Bus](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		return New(Config{
			PhraseSize:         cfg.PhraseSize,
			TargetLanguage:     cfg.TargetLanguage,
			TargetLocale:       cfg.TargetLocale,
			TranslationTimeout: cfg.TranslationTimeout,
			PlaybackTimeout:    cfg.PlaybackTimeout,
			RecentTranslations: cfg.RecentTranslations,
			Voice:              cfg.SpeechVoice,
			SpeechRate:         cfg.SpeechRate,
			SpeechPitch:        cfg.SpeechPitch,
			SpeechVolume:       cfg.SpeechVolumeDB,
		}, tr, sp, bus, m), nil
	})
}
