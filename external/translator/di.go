package translator

import (
	"context"
	"fmt"

	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/foxseedlab/tsuyaku/internal/repository"
	"github.com/foxseedlab/tsuyaku/internal/translator"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (translator.Translator, error) {
		c := do.MustInvoke[*config.Config](i)
		memory := do.MustInvoke[repository.TranslationMemory](i)

		var provider translator.Translator
		switch c.Translator {
		case config.TranslatorLibreTranslate:
			provider = NewLibreTranslateClient(c.TranslatorURL, c.TranslatorAPIKey)
		case config.TranslatorGoogle:
			svc, err := NewGoogleTranslateService(context.Background(), c.GoogleCloudCredentialsJSON)
			if err != nil {
				return nil, fmt.Errorf("create translation service: %w", err)
			}
			provider = NewGoogleTranslator(svc)
		default:
			return nil, fmt.Errorf("unsupported translator: %q", c.Translator)
		}
		return translator.NewMemoizedTranslator(provider, memory), nil
	})
}
