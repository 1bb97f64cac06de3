package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *int:
			*p = r.values[i].(int)
		case *time.Time:
			*p = r.values[i].(time.Time)
		}
	}
	return nil
}

type fakeDB struct {
	row       fakeRow
	execSQL   []string
	execArgs  [][]any
	queryArgs []any
	execErr   error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	f.queryArgs = args
	return f.row
}

func TestLookupTranslation_Hit(t *testing.T) {
	now := time.Now()
	db := &fakeDB{row: fakeRow{values: []any{"id-1", "ja", "en", "こんにちは", "hello", 3, now, now}}}
	mem := NewPostgresTranslationMemory(db)

	entry, err := mem.LookupTranslation(context.Background(), repository.LookupTranslationInput{SourceLanguage: "ja", TargetLanguage: "en", SourceText: "こんにちは"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry == nil || entry.TranslatedText != "hello" || entry.HitCount != 3 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if len(db.queryArgs) != 3 || db.queryArgs[2] != "こんにちは" {
		t.Fatalf("unexpected query args: %v", db.queryArgs)
	}
}

func TestLookupTranslation_MissReturnsNil(t *testing.T) {
	mem := NewPostgresTranslationMemory(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}})
	entry, err := mem.LookupTranslation(context.Background(), repository.LookupTranslationInput{})
	if err != nil || entry != nil {
		t.Fatalf("expected nil entry and nil error, got %+v, %v", entry, err)
	}
}

func TestLookupTranslation_Error(t *testing.T) {
	mem := NewPostgresTranslationMemory(&fakeDB{row: fakeRow{err: errors.New("connection reset")}})
	if _, err := mem.LookupTranslation(context.Background(), repository.LookupTranslationInput{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSaveTranslation_Upserts(t *testing.T) {
	db := &fakeDB{}
	mem := NewPostgresTranslationMemory(db)
	err := mem.SaveTranslation(context.Background(), repository.SaveTranslationInput{
		SourceLanguage: "ja", TargetLanguage: "en", SourceText: "おはよう", TranslatedText: "good morning",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(db.execSQL) != 1 || !strings.Contains(db.execSQL[0], "ON CONFLICT") {
		t.Fatalf("unexpected statements: %v", db.execSQL)
	}
	if db.execArgs[0][3] != "good morning" {
		t.Fatalf("unexpected args: %v", db.execArgs[0])
	}
}

func TestRunMigration_ExecutesEveryStatement(t *testing.T) {
	db := &fakeDB{}
	if err := RunMigration(context.Background(), db); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(db.execSQL) != len(migrationStatements) {
		t.Fatalf("expected %d statements, got %d", len(migrationStatements), len(db.execSQL))
	}

	failing := &fakeDB{execErr: errors.New("permission denied")}
	if err := RunMigration(context.Background(), failing); err == nil {
		t.Fatal("expected migration error")
	}
}
