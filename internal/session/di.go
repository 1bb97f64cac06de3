package session

import (
	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/foxseedlab/tsuyaku/internal/events"
	"github.com/foxseedlab/tsuyaku/internal/metrics"
	"github.com/foxseedlab/tsuyaku/internal/pipeline"
	"github.com/foxseedlab/tsuyaku/internal/token"
	"github.com/foxseedlab/tsuyaku/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Controller, error) {
		cfg := do.MustInvoke[*config.Config](i)
		p := do.MustInvoke[*pipeline.Pipeline](i)
		stt := do.MustInvoke[transcriber.Transcriber](i)
		tokens := do.MustInvoke[token.Provider](i)
		newCapture := do.MustInvoke[audio.CaptureFactory](i)
		bus := do.MustInvoke[*events.Bus](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		return NewController(cfg, p, stt, tokens, newCapture, bus, m), nil
	})
}
