package translator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/foxseedlab/tsuyaku/internal/repository"
)

type memoizedTranslator struct {
	next   Translator
	memory repository.TranslationMemory
}

// NewMemoizedTranslator consults memory before calling next and stores every
// successful provider response. Memory faults never fail a translation.
func NewMemoizedTranslator(next Translator, memory repository.TranslationMemory) Translator {
	if memory == nil {
		return next
	}
	return &memoizedTranslator{next: next, memory: memory}
}

func (t *memoizedTranslator) Translate(ctx context.Context, req Request) (string, error) {
	key := normalizeKey(req.Text)
	entry, err := t.memory.LookupTranslation(ctx, repository.LookupTranslationInput{
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		SourceText:     key,
	})
	if err != nil {
		slog.Warn("translation memory lookup failed", "error", err, "source_language", req.SourceLanguage, "target_language", req.TargetLanguage)
	} else if entry != nil {
		slog.Debug("translation memory hit", "source_language", req.SourceLanguage, "target_language", req.TargetLanguage, "hit_count", entry.HitCount)
		return entry.TranslatedText, nil
	}

	translated, err := t.next.Translate(ctx, req)
	if err != nil {
		return "", err
	}
	if err := t.memory.SaveTranslation(ctx, repository.SaveTranslationInput{
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		SourceText:     key,
		TranslatedText: translated,
	}); err != nil {
		slog.Warn("translation memory save failed", "error", err, "source_language", req.SourceLanguage, "target_language", req.TargetLanguage)
	}
	return translated, nil
}

func normalizeKey(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
