package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestStore creates an in-memory store with the full schema for testing.
// Cleanup is registered with t.Cleanup().
func NewTestStore(t testing.TB) *Store {
	t.Helper()

	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
