package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisaudit/aegis/internal/record"
)

func TestOpen_FreshDatabase(t *testing.T) {
	st := newLockedStore(t)

	version, err := st.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)

	installID, err := st.InstallID()
	require.NoError(t, err)
	assert.NotEmpty(t, installID)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aegis.db")

	first, err := Open(path)
	require.NoError(t, err)
	firstID, err := first.InstallID()
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	version, err := second.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)

	secondID, err := second.InstallID()
	require.NoError(t, err)
	assert.Equal(t, firstID, secondID, "install id and salt persist across opens")
}

func TestMigrations_Monotonic(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "aegis.db")

	// Open at schema version 1 and write rows.
	v1, err := Open(path, withMaxVersion(1))
	require.NoError(t, err)
	require.NoError(t, v1.Unlock(testPassphrase))

	version, err := v1.SchemaVersion()
	require.NoError(t, err)
	require.Equal(t, 1, version)

	_, err = v1.Documents.Add(ctx, v1.DB(), &record.Document{
		Title: "Quality Manual", DocNumber: "QM-001", Revision: 1, Owner: "System",
		Status: record.DocumentPublished,
		NextReviewDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Tags:   []string{"quality"},
	})
	require.NoError(t, err)
	auditID, err := v1.Audits.Add(ctx, v1.DB(), &record.Audit{
		AuditName: "Annual Audit", Status: record.AuditPlanned, RiskLevel: record.RiskLow,
		ScheduledDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, v1.Close())

	// Reopen with the full migration chain.
	full, err := Open(path)
	require.NoError(t, err)
	defer full.Close()
	require.NoError(t, full.Unlock(testPassphrase))

	version, err = full.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)

	// Every row from version 1 is preserved.
	docs, err := full.Documents.All(ctx, full.DB())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "QM-001", docs[0].DocNumber)
	assert.Equal(t, []string{"quality"}, docs[0].Tags)

	// Collections declared by later versions are usable.
	_, err = full.Checklists.Add(ctx, full.DB(), &record.Checklist{AuditID: auditID, Name: "Core"})
	require.NoError(t, err)
}

func TestUnlock_Twice(t *testing.T) {
	st := newTestStore(t)
	assert.Error(t, st.Unlock(testPassphrase), "session key is set exactly once")
}

func TestUnlock_StateReported(t *testing.T) {
	st := newLockedStore(t)
	assert.False(t, st.Unlocked())
	require.NoError(t, st.Unlock(testPassphrase))
	assert.True(t, st.Unlocked())
}

func TestStore_EnvelopeOnDisk(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.Documents.Add(ctx, st.DB(), &record.Document{
		Title: "Secret Process Specification", DocNumber: "SPS-001", Revision: 1,
		Owner: "System", Status: record.DocumentDraft,
		NextReviewDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Tags:           []string{"process"},
	})
	require.NoError(t, err)

	// The stored row carries only the sealed envelope; the title never
	// appears in the table.
	var iv, ciphertext string
	err = st.db.QueryRow("SELECT iv, ciphertext FROM documents WHERE doc_number = 'SPS-001'").
		Scan(&iv, &ciphertext)
	require.NoError(t, err)
	assert.NotEmpty(t, iv)
	assert.NotContains(t, ciphertext, "Secret Process Specification")

	var n int
	err = st.db.QueryRow("SELECT COUNT(*) FROM documents WHERE ciphertext LIKE '%Secret%'").Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_WrongPassphraseFailsDecryption(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "aegis.db")

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Unlock("first-passphrase"))
	id, err := st.Documents.Add(ctx, st.DB(), &record.Document{
		Title: "Doc", DocNumber: "D-1", Revision: 1, Owner: "System",
		Status: record.DocumentDraft, NextReviewDate: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Unlock("second-passphrase"))

	_, err = reopened.Documents.Get(ctx, reopened.DB(), id)
	require.Error(t, err)
	assert.True(t, IsDecryptionFailed(err), "got %v", err)
}
