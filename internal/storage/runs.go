package storage

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// RunCounts are the per-outcome file counts of one index run.
type RunCounts struct {
	Indexed   int `json:"indexed"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Removed   int `json:"removed"`
}

// Run is one recorded index run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in progress
	RunCounts
}

// runTimeLayout has fixed-width fractions so stored timestamps sort lexically.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// BeginRun records the start of an index run and returns its id.
func (s *Store) BeginRun() (string, error) {
	id := uuid.New().String()
	_, err := sq.Insert("index_runs").
		Columns("id", "started_at").
		Values(id, time.Now().UTC().Format(runTimeLayout)).
		RunWith(s.db).
		Exec()
	if err != nil {
		return "", fmt.Errorf("failed to begin run: %w", err)
	}
	return id, nil
}

// FinishRun stamps a run with its end time and counts.
func (s *Store) FinishRun(id string, counts RunCounts) error {
	res, err := sq.Update("index_runs").
		Set("finished_at", time.Now().UTC().Format(runTimeLayout)).
		Set("files_indexed", counts.Indexed).
		Set("files_unchanged", counts.Unchanged).
		Set("files_skipped", counts.Skipped).
		Set("files_failed", counts.Failed).
		Set("files_removed", counts.Removed).
		Where(sq.Eq{"id": id}).
		RunWith(s.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to finish run %s: no such run", id)
	}
	return nil
}

// LastRun returns the most recently started run, or (nil, nil) if none exists.
func (s *Store) LastRun() (*Run, error) {
	var run Run
	var started string
	var finished sql.NullString

	err := sq.Select(
		"id", "started_at", "finished_at",
		"files_indexed", "files_unchanged", "files_skipped", "files_failed", "files_removed",
	).
		From("index_runs").
		OrderBy("started_at DESC", "rowid DESC").
		Limit(1).
		RunWith(s.db).
		QueryRow().
		Scan(
			&run.ID, &started, &finished,
			&run.Indexed, &run.Unchanged, &run.Skipped, &run.Failed, &run.Removed,
		)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last run: %w", err)
	}

	run.StartedAt, _ = time.Parse(runTimeLayout, started)
	if finished.Valid {
		run.FinishedAt, _ = time.Parse(runTimeLayout, finished.String)
	}
	return &run, nil
}
