package repository

import (
	"context"
	"errors"

	"github.com/foxseedlab/tsuyaku/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// dbtx is the subset of *pgxpool.Pool the repository uses.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresTranslationMemory struct {
	db dbtx
}

func NewPostgresTranslationMemory(db dbtx) *PostgresTranslationMemory {
	return &PostgresTranslationMemory{db: db}
}

// LookupTranslation counts the hit in the same statement that reads the entry.
func (r *PostgresTranslationMemory) LookupTranslation(ctx context.Context, input repository.LookupTranslationInput) (*repository.TranslationEntry, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE translation_memory SET hit_count = hit_count + 1, last_used_at = NOW()
		 WHERE source_language = $1 AND target_language = $2 AND source_text = $3
		 RETURNING id, source_language, target_language, source_text, translated_text, hit_count, created_at, last_used_at`,
		input.SourceLanguage, input.TargetLanguage, input.SourceText)
	var e repository.TranslationEntry
	err := row.Scan(&e.ID, &e.SourceLanguage, &e.TargetLanguage, &e.SourceText, &e.TranslatedText, &e.HitCount, &e.CreatedAt, &e.LastUsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *PostgresTranslationMemory) SaveTranslation(ctx context.Context, input repository.SaveTranslationInput) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO translation_memory (source_language, target_language, source_text, translated_text)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (source_language, target_language, source_text)
		 DO UPDATE SET translated_text = EXCLUDED.translated_text, last_used_at = NOW()`,
		input.SourceLanguage, input.TargetLanguage, input.SourceText, input.TranslatedText)
	return err
}
