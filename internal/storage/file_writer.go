package storage

import (
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/project-atlas/internal/imports"
	"github.com/mvp-joe/project-atlas/internal/resolve"
	"github.com/mvp-joe/project-atlas/internal/signature"
)

// FileRecord is one stored file.
type FileRecord struct {
	Path        string
	Language    string
	ContentHash string
	Signature   *signature.StructuralSignature
	Imports     []imports.Import
	Stats       resolve.Stats
	IndexedAt   time.Time
}

// callSiteBatch bounds the rows per INSERT to stay under SQLite's variable limit.
const callSiteBatch = 100

// PutFile writes or replaces a file and its call sites in one transaction.
func (s *Store) PutFile(rec *FileRecord) error {
	if rec.Signature == nil {
		return fmt.Errorf("failed to write %s: nil signature", rec.Path)
	}
	sigJSON, err := json.Marshal(rec.Signature)
	if err != nil {
		return fmt.Errorf("failed to encode signature for %s: %w", rec.Path, err)
	}
	imps := rec.Imports
	if imps == nil {
		imps = []imports.Import{}
	}
	impJSON, err := json.Marshal(imps)
	if err != nil {
		return fmt.Errorf("failed to encode imports for %s: %w", rec.Path, err)
	}
	indexedAt := rec.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := sq.Delete("call_sites").Where(sq.Eq{"file_path": rec.Path}).RunWith(tx).Exec(); err != nil {
		return fmt.Errorf("failed to clear call sites for %s: %w", rec.Path, err)
	}

	_, err = sq.Insert("files").
		Columns(
			"file_path", "language", "content_hash", "signature_json", "imports_json",
			"call_count", "resolved_count", "has_errors", "indexed_at",
		).
		Values(
			rec.Path,
			rec.Language,
			rec.ContentHash,
			string(sigJSON),
			string(impJSON),
			rec.Stats.Calls,
			rec.Stats.SameFile+rec.Stats.InternalCodebase,
			rec.Signature.HasErrors,
			indexedAt.UTC().Format(time.RFC3339),
		).
		Options("OR REPLACE").
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", rec.Path, err)
	}

	rows := callRows(rec.Signature)
	for start := 0; start < len(rows); start += callSiteBatch {
		end := min(start+callSiteBatch, len(rows))
		ins := sq.Insert("call_sites").
			Columns("file_path", "caller", "callee", "qualifier", "classification", "target", "line")
		for _, r := range rows[start:end] {
			ins = ins.Values(rec.Path, r.Caller, r.Callee, r.Qualifier, string(r.Classification), r.Target, r.Line)
		}
		if _, err := ins.RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("failed to write call sites for %s: %w", rec.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit file %s: %w", rec.Path, err)
	}
	return nil
}

// DeleteFile removes a file and, by cascade, its call sites. Deleting a
// missing file is not an error.
func (s *Store) DeleteFile(path string) error {
	_, err := sq.Delete("files").
		Where(sq.Eq{"file_path": path}).
		RunWith(s.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}
	return nil
}

// callRows flattens every call site of a signature with the dotted path of
// its enclosing function.
func callRows(sig *signature.StructuralSignature) []CallRecord {
	var rows []CallRecord
	var walkFns func(prefix string, fns []signature.FunctionInfo)
	walkFns = func(prefix string, fns []signature.FunctionInfo) {
		for _, fn := range fns {
			caller := joinName(prefix, fn.Name)
			for _, c := range fn.FunctionCalls {
				rows = append(rows, CallRecord{
					Caller:         caller,
					Callee:         c.Callee,
					Qualifier:      c.Qualifier,
					Classification: c.Classification,
					Target:         c.Target,
					Line:           c.Line,
				})
			}
			walkFns(caller, fn.NestedFunctions)
		}
	}
	var walkClasses func(prefix string, classes []signature.ClassInfo)
	walkClasses = func(prefix string, classes []signature.ClassInfo) {
		for _, cls := range classes {
			name := joinName(prefix, cls.Name)
			walkFns(name, cls.Methods)
			walkClasses(name, cls.NestedClasses)
		}
	}
	walkFns("", sig.Functions)
	walkClasses("", sig.Classes)
	return rows
}

func joinName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
