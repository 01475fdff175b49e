package storage

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Metadata returns a store_metadata value and whether the key exists.
func (s *Store) Metadata(key string) (string, bool, error) {
	var value string
	err := sq.Select("value").
		From("store_metadata").
		Where(sq.Eq{"key": key}).
		RunWith(s.db).
		QueryRow().
		Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get metadata %s: %w", key, err)
	}
	return value, true, nil
}

// SetMetadata writes or replaces a store_metadata value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := sq.Insert("store_metadata").
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now().UTC().Format(time.RFC3339)).
		Options("OR REPLACE").
		RunWith(s.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to set metadata %s: %w", key, err)
	}
	return nil
}
