package token

import (
	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/foxseedlab/tsuyaku/internal/token"
	"github.com/samber/do/v2"
)

// RegisterDI provides a nil token.Provider for sources that authenticate
// without a per-stream token.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (token.Provider, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.TranscriptSource != config.TranscriptSourceRealtime {
			return nil, nil
		}
		return NewGrantClient(c.RealtimeTokenURL, c.RealtimeAPIKey), nil
	})
}
