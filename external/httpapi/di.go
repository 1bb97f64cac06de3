package httpapi

import (
	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/foxseedlab/tsuyaku/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Hub, error) {
		controller := do.MustInvoke[*session.Controller](i)
		return NewHub(controller), nil
	})
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		controller := do.MustInvoke[*session.Controller](i)
		hub := do.MustInvoke[*Hub](i)
		registry := do.MustInvoke[*prometheus.Registry](i)
		return NewServer(cfg.HTTPAddr, controller, hub, registry), nil
	})
}
