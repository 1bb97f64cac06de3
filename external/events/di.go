package events

import (
	"log/slog"

	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*KafkaPublisher, error) {
		c := do.MustInvoke[*config.Config](i)
		if !c.KafkaEnabled() {
			slog.Info("KAFKA_BROKERS is not set; events are logged only")
		}
		return NewKafkaPublisher(KafkaConfig{Brokers: c.KafkaBrokers, Topic: c.KafkaTopic}), nil
	})
}
