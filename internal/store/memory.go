package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MemoryEntry is one remembered chunk translation.
type MemoryEntry struct {
	ID          string
	SourceText  string
	SourceLang  string
	TargetLang  string
	FinalText   string
	UsageCount  int
	Invalidated bool
	LastUsed    time.Time
}

// CacheStats summarises translation memory usage.
type CacheStats struct {
	TotalEntries   int
	ActiveEntries  int
	InvalidEntries int
	TotalUsage     int
}

// GetCachedTranslation returns the remembered translation of a chunk and
// counts the hit. The lookup ignores surrounding whitespace; invalidated
// entries are misses.
func (s *Store) GetCachedTranslation(ctx context.Context, sourceText, sourceLang, targetLang string) (string, bool, error) {
	var text string
	err := s.db.QueryRowContext(ctx,
		`UPDATE translation_memory SET usage_count = usage_count + 1, last_used = ?
		 WHERE source_text = ? AND source_lang = ? AND target_lang = ? AND NOT invalidated
		 RETURNING final_text`,
		time.Now(), normalizeText(sourceText), sourceLang, targetLang).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// SaveToMemory remembers the translation of a chunk, replacing an earlier
// entry for the same chunk and language pair.
func (s *Store) SaveToMemory(ctx context.Context, sourceText, sourceLang, targetLang, finalText string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO translation_memory (id, source_text, source_lang, target_lang, final_text, last_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_text, source_lang, target_lang) DO UPDATE SET
			final_text = excluded.final_text, usage_count = 1, invalidated = FALSE, last_used = excluded.last_used`,
		"mem_"+uuid.NewString(), normalizeText(sourceText), sourceLang, targetLang, strings.TrimSpace(finalText), now, now)
	return err
}

// InvalidateMemory keeps an entry but stops serving it.
func (s *Store) InvalidateMemory(ctx context.Context, id string) error {
	return s.execOne(ctx, ErrNotFound, id, `UPDATE translation_memory SET invalidated = TRUE WHERE id = ?`, id)
}

func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	return s.execOne(ctx, ErrNotFound, id, `DELETE FROM translation_memory WHERE id = ?`, id)
}

// ClearMemory removes every entry and returns how many there were.
func (s *Store) ClearMemory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_memory`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListMemory returns all entries, most recently used first.
func (s *Store) ListMemory(ctx context.Context) ([]MemoryEntry, error) {
	return queryAll(ctx, s.db, func(row scanner) (MemoryEntry, error) {
		var e MemoryEntry
		err := row.Scan(&e.ID, &e.SourceText, &e.SourceLang, &e.TargetLang, &e.FinalText, &e.UsageCount, &e.Invalidated, &e.LastUsed)
		return e, err
	}, `SELECT id, source_text, source_lang, target_lang, final_text, usage_count, invalidated, last_used
	    FROM translation_memory ORDER BY last_used DESC`)
}

func (s *Store) Stats(ctx context.Context) (*CacheStats, error) {
	var st CacheStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(NOT invalidated), 0),
			COALESCE(SUM(invalidated), 0),
			COALESCE(SUM(usage_count), 0)
		FROM translation_memory`).Scan(&st.TotalEntries, &st.ActiveEntries, &st.InvalidEntries, &st.TotalUsage)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
