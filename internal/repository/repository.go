package repository

import "context"

type LookupTranslationInput struct {
	SourceLanguage string
	TargetLanguage string
	SourceText     string
}

type SaveTranslationInput struct {
	SourceLanguage string
	TargetLanguage string
	SourceText     string
	TranslatedText string
}

// TranslationMemory memoizes provider responses. LookupTranslation returns
// nil without error on a miss.
type TranslationMemory interface {
	LookupTranslation(ctx context.Context, input LookupTranslationInput) (*TranslationEntry, error)
	SaveTranslation(ctx context.Context, input SaveTranslationInput) error
}
