package repository

import (
	"context"
	"strings"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS translation_memory (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		source_language TEXT NOT NULL,
		target_language TEXT NOT NULL,
		source_text TEXT NOT NULL,
		translated_text TEXT NOT NULL,
		hit_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_used_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(source_language, target_language, source_text)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_translation_memory_last_used ON translation_memory (last_used_at)`,
}

func RunMigration(ctx context.Context, db dbtx) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
