package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/valpere/texsplit/internal"
)

const runColumns = `r.id, r.input_file, r.output_file, r.source_lang, r.target_lang, r.source_hash,
	r.chunk_size, r.chunk_count, r.status, r.error, r.created_at, r.updated_at,
	(SELECT COUNT(*) FROM run_chunks c WHERE c.run_id = r.id)`

func scanRun(row scanner) (internal.Run, error) {
	var run internal.Run
	err := row.Scan(&run.ID, &run.InputFile, &run.OutputFile, &run.SourceLang, &run.TargetLang, &run.SourceHash,
		&run.ChunkSize, &run.ChunkCount, &run.Status, &run.Error, &run.CreatedAt, &run.UpdatedAt, &run.Done)
	return run, err
}

// CreateRun records a new running run. An empty ID is replaced by a random
// one; the stored ID is returned.
func (s *Store) CreateRun(ctx context.Context, run internal.Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_file, output_file, source_lang, target_lang, source_hash, chunk_size, chunk_count, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.InputFile, run.OutputFile, run.SourceLang, run.TargetLang, run.SourceHash,
		run.ChunkSize, run.ChunkCount, string(internal.RunRunning), now, now)
	return run.ID, err
}

// GetRun returns a run with its checkpointed chunk count.
func (s *Store) GetRun(ctx context.Context, runID string) (*internal.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]internal.Run, error) {
	return queryAll(ctx, s.db, scanRun, `SELECT `+runColumns+` FROM runs r ORDER BY r.created_at DESC`)
}

// FinishRun marks a run completed, or failed with runErr.
func (s *Store) FinishRun(ctx context.Context, runID string, runErr error) error {
	status, msg := internal.RunCompleted, ""
	if runErr != nil {
		status, msg = internal.RunFailed, runErr.Error()
	}
	return s.execOne(ctx, ErrRunNotFound, runID,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`, string(status), msg, time.Now(), runID)
}

// ReopenRun marks a failed run as running again before it is resumed.
func (s *Store) ReopenRun(ctx context.Context, runID string) error {
	return s.execOne(ctx, ErrRunNotFound, runID,
		`UPDATE runs SET status = ?, error = '', updated_at = ? WHERE id = ?`, string(internal.RunRunning), time.Now(), runID)
}

// DeleteRun removes a run and its checkpointed chunks.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	return s.execOne(ctx, ErrRunNotFound, runID, `DELETE FROM runs WHERE id = ?`, runID)
}

// SaveRunChunk checkpoints the translation of chunk index of a run,
// replacing an earlier one.
func (s *Store) SaveRunChunk(ctx context.Context, runID string, index int, translated string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_chunks (run_id, chunk_idx, translated_text) VALUES (?, ?, ?)
		 ON CONFLICT(run_id, chunk_idx) DO UPDATE SET translated_text = excluded.translated_text`,
		runID, index, translated)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE runs SET updated_at = ? WHERE id = ?`, time.Now(), runID)
	return err
}

// GetRunChunks returns the checkpointed chunks of a run by index.
func (s *Store) GetRunChunks(ctx context.Context, runID string) (map[int]string, error) {
	type row struct {
		idx  int
		text string
	}
	rows, err := queryAll(ctx, s.db, func(sc scanner) (row, error) {
		var r row
		err := sc.Scan(&r.idx, &r.text)
		return r, err
	}, `SELECT chunk_idx, translated_text FROM run_chunks WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	chunks := make(map[int]string, len(rows))
	for _, r := range rows {
		chunks[r.idx] = r.text
	}
	return chunks, nil
}
