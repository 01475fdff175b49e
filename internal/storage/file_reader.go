package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/project-atlas/internal/signature"
)

// CallRecord is one stored call site.
type CallRecord struct {
	File           string                   `json:"file"`
	Caller         string                   `json:"caller"`
	Callee         string                   `json:"callee"`
	Qualifier      string                   `json:"qualifier,omitempty"`
	Classification signature.Classification `json:"classification,omitempty"`
	Target         string                   `json:"target,omitempty"`
	Line           int                      `json:"line"`
}

// GetFile retrieves one file. Returns (nil, nil) if the file is not stored.
func (s *Store) GetFile(path string) (*FileRecord, error) {
	rec := &FileRecord{}
	var sigJSON, impJSON, indexedAt string
	var resolved int

	err := sq.Select(
		"file_path", "language", "content_hash", "signature_json", "imports_json",
		"call_count", "resolved_count", "indexed_at",
	).
		From("files").
		Where(sq.Eq{"file_path": path}).
		RunWith(s.db).
		QueryRow().
		Scan(
			&rec.Path,
			&rec.Language,
			&rec.ContentHash,
			&sigJSON,
			&impJSON,
			&rec.Stats.Calls,
			&resolved,
			&indexedAt,
		)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", path, err)
	}

	rec.Signature = &signature.StructuralSignature{}
	if err := json.Unmarshal([]byte(sigJSON), rec.Signature); err != nil {
		return nil, fmt.Errorf("failed to decode signature for %s: %w", path, err)
	}
	if err := json.Unmarshal([]byte(impJSON), &rec.Imports); err != nil {
		return nil, fmt.Errorf("failed to decode imports for %s: %w", path, err)
	}
	rec.IndexedAt, _ = time.Parse(time.RFC3339, indexedAt)

	// per-rule counts are not stored; rebuild the rest from the signature
	rec.Signature.WalkFunctions(func(f *signature.FunctionInfo, _ *signature.ClassInfo) {
		for _, c := range f.FunctionCalls {
			switch c.Classification {
			case signature.SameFile:
				rec.Stats.SameFile++
			case signature.InternalCodebase:
				rec.Stats.InternalCodebase++
			}
		}
	})
	rec.Stats.Unresolved = rec.Stats.Calls - resolved

	return rec, nil
}

// FileHash returns the stored content hash of path and whether it exists.
func (s *Store) FileHash(path string) (string, bool, error) {
	var hash string
	err := sq.Select("content_hash").
		From("files").
		Where(sq.Eq{"file_path": path}).
		RunWith(s.db).
		QueryRow().
		Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get hash for %s: %w", path, err)
	}
	return hash, true, nil
}

// FileHashes returns the content hash of every stored file, keyed by path.
func (s *Store) FileHashes() (map[string]string, error) {
	rows, err := sq.Select("file_path", "content_hash").
		From("files").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query file hashes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan file hash: %w", err)
		}
		out[path] = hash
	}
	return out, rows.Err()
}

// ListFiles returns every stored path, sorted.
func (s *Store) ListFiles() ([]string, error) {
	rows, err := sq.Select("file_path").
		From("files").
		OrderBy("file_path").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan file path: %w", err)
		}
		out = append(out, path)
	}
	return out, rows.Err()
}

// CallersOf returns every resolved call site whose target is target, ordered
// by file and line.
func (s *Store) CallersOf(target string) ([]CallRecord, error) {
	rows, err := sq.Select("file_path", "caller", "callee", "qualifier", "classification", "target", "line").
		From("call_sites").
		Where(sq.Eq{"target": target}).
		OrderBy("file_path", "line").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query callers of %s: %w", target, err)
	}
	defer rows.Close()

	var out []CallRecord
	for rows.Next() {
		var c CallRecord
		var class string
		if err := rows.Scan(&c.File, &c.Caller, &c.Callee, &c.Qualifier, &class, &c.Target, &c.Line); err != nil {
			return nil, fmt.Errorf("failed to scan call site: %w", err)
		}
		c.Classification = signature.Classification(class)
		out = append(out, c)
	}
	return out, rows.Err()
}
