package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GlossaryEntry is one source term and its required translation for a
// language pair.
type GlossaryEntry struct {
	ID         string
	SourceLang string
	TargetLang string
	SourceTerm string
	TargetTerm string
	CreatedAt  time.Time
}

// AddGlossaryTerm adds a term, replacing the translation of an existing term
// for the same pair.
func (s *Store) AddGlossaryTerm(ctx context.Context, sourceLang, targetLang, sourceTerm, targetTerm string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO glossary (id, source_lang, target_lang, source_term, target_term) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(source_lang, target_lang, source_term) DO UPDATE SET target_term = excluded.target_term`,
		"gl_"+uuid.NewString(), sourceLang, targetLang, sourceTerm, targetTerm)
	return err
}

// GetGlossaryTerms returns the terms of a language pair as a map from source
// term to target term.
func (s *Store) GetGlossaryTerms(ctx context.Context, sourceLang, targetLang string) (map[string]string, error) {
	entries, err := s.ListGlossaryTerms(ctx, sourceLang, targetLang)
	if err != nil {
		return nil, err
	}
	terms := make(map[string]string, len(entries))
	for _, e := range entries {
		terms[e.SourceTerm] = e.TargetTerm
	}
	return terms, nil
}

// ListGlossaryTerms returns entries sorted by pair and term. An empty
// language matches every language.
func (s *Store) ListGlossaryTerms(ctx context.Context, sourceLang, targetLang string) ([]GlossaryEntry, error) {
	var (
		where []string
		args  []any
	)
	if sourceLang != "" {
		where = append(where, "source_lang = ?")
		args = append(args, sourceLang)
	}
	if targetLang != "" {
		where = append(where, "target_lang = ?")
		args = append(args, targetLang)
	}
	query := `SELECT id, source_lang, target_lang, source_term, target_term, created_at FROM glossary`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY source_lang, target_lang, source_term`

	return queryAll(ctx, s.db, func(row scanner) (GlossaryEntry, error) {
		var e GlossaryEntry
		err := row.Scan(&e.ID, &e.SourceLang, &e.TargetLang, &e.SourceTerm, &e.TargetTerm, &e.CreatedAt)
		return e, err
	}, query, args...)
}

func (s *Store) DeleteGlossaryTerm(ctx context.Context, id string) error {
	return s.execOne(ctx, ErrNotFound, id, `DELETE FROM glossary WHERE id = ?`, id)
}
