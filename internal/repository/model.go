package repository

import "time"

type TranslationEntry struct {
	ID             string
	SourceLanguage string
	TargetLanguage string
	SourceText     string
	TranslatedText string
	HitCount       int
	CreatedAt      time.Time
	LastUsedAt     time.Time
}
