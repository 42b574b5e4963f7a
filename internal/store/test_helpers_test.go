package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testPassphrase = "unit-test-passphrase"

// newTestStore opens a fresh unlocked store in a temp directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	st := newLockedStore(t)
	require.NoError(t, st.Unlock(testPassphrase))
	return st
}

// newLockedStore opens a fresh store without deriving the session key.
func newLockedStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "aegis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}
