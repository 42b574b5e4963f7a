package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisaudit/aegis/internal/record"
)

func testDoc(number string) record.Document {
	return record.Document{
		Title:          "Procedure " + number,
		DocNumber:      number,
		Revision:       1,
		Owner:          "System",
		Status:         record.DocumentDraft,
		NextReviewDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		Tags:           []string{"procedure"},
	}
}

func TestCollection_AddGet(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	doc := testDoc("PR-001")
	id, err := st.Documents.Add(ctx, st.DB(), &doc)
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.Equal(t, id, doc.ID, "Add assigns the record's id")

	got, err := st.Documents.Get(ctx, st.DB(), id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, doc, *got)
}

func TestCollection_GetMissing(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	got, err := st.Documents.Get(ctx, st.DB(), 12345)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCollection_BulkAdd(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	docs := []record.Document{testDoc("PR-001"), testDoc("PR-002"), testDoc("PR-003")}
	ids, err := st.Documents.BulkAdd(ctx, st.DB(), docs)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	all, err := st.Documents.All(ctx, st.DB())
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, d := range all {
		assert.Equal(t, ids[i], d.ID)
	}
}

func TestCollection_Update(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	doc := testDoc("PR-001")
	id, err := st.Documents.Add(ctx, st.DB(), &doc)
	require.NoError(t, err)

	err = st.Documents.Update(ctx, st.DB(), id, func(d *record.Document) {
		d.Status = record.DocumentPublished
		d.Revision = 2
		d.Tags = []string{"procedure", "published"}
	})
	require.NoError(t, err)

	got, err := st.Documents.Get(ctx, st.DB(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID, "id never changes")
	assert.Equal(t, record.DocumentPublished, got.Status)
	assert.Equal(t, 2, got.Revision)

	// The multi-valued tag index follows the update.
	tagged, err := st.Documents.Query(ctx, st.DB(), "tag", "published")
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, id, tagged[0].ID)
}

func TestCollection_UpdateMissing(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	err := st.Documents.Update(ctx, st.DB(), 999, func(d *record.Document) {})
	require.Error(t, err)
}

func TestCollection_QueryIndexedField(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	a := testDoc("PR-001")
	b := testDoc("PR-002")
	b.Owner = "QA"
	_, err := st.Documents.Add(ctx, st.DB(), &a)
	require.NoError(t, err)
	_, err = st.Documents.Add(ctx, st.DB(), &b)
	require.NoError(t, err)

	qa, err := st.Documents.Query(ctx, st.DB(), "owner", "QA")
	require.NoError(t, err)
	require.Len(t, qa, 1)
	assert.Equal(t, "PR-002", qa[0].DocNumber)
}

func TestCollection_QueryTags(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	a := testDoc("PR-001")
	a.Tags = []string{"safety", "operations"}
	b := testDoc("PR-002")
	b.Tags = []string{"safety"}
	c := testDoc("PR-003")
	c.Tags = []string{"quality"}
	for _, d := range []*record.Document{&a, &b, &c} {
		_, err := st.Documents.Add(ctx, st.DB(), d)
		require.NoError(t, err)
	}

	safety, err := st.Documents.Query(ctx, st.DB(), "tag", "safety")
	require.NoError(t, err)
	assert.Len(t, safety, 2)
}

func TestCollection_QueryUnindexedColumn(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.Documents.Query(ctx, st.DB(), "title", "x")
	require.Error(t, err, "only indexed fields are queryable")
}

func TestCollection_UniqueDocNumber(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	first := testDoc("PR-001")
	_, err := st.Documents.Add(ctx, st.DB(), &first)
	require.NoError(t, err)

	duplicate := testDoc("PR-001")
	_, err = st.Documents.Add(ctx, st.DB(), &duplicate)
	require.Error(t, err)
	assert.True(t, IsConstraintViolation(err), "got %v", err)

	all, err := st.Documents.All(ctx, st.DB())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCollection_UniqueViolationRollsBackTransaction(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	err := st.Transact(ctx, func(tx *sql.Tx) error {
		if _, err := st.Documents.Add(ctx, tx, &record.Document{
			Title: "A", DocNumber: "DUP-1", Revision: 1, Owner: "System",
			Status: record.DocumentDraft, NextReviewDate: time.Now().UTC(),
		}); err != nil {
			return err
		}
		_, err := st.Documents.Add(ctx, tx, &record.Document{
			Title: "B", DocNumber: "DUP-1", Revision: 1, Owner: "System",
			Status: record.DocumentDraft, NextReviewDate: time.Now().UTC(),
		})
		return err
	})
	require.Error(t, err)
	assert.True(t, IsConstraintViolation(err))

	// Visible content unchanged: the whole transaction rolled back.
	n, err := st.Documents.Count(ctx, st.DB())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCollection_ForeignKeyEnforced(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.NonConformances.Add(ctx, st.DB(), &record.NonConformance{
		NcrNumber: "NCR-001", Status: record.NcrOpen,
		Classification: record.NcrMajor, AuditID: 999, ProcessOwner: "Production",
	})
	require.Error(t, err)
	assert.True(t, IsConstraintViolation(err), "got %v", err)
}

func TestCollection_UniqueNcrNumber(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	audit := record.Audit{AuditName: "A1", Status: record.AuditPlanned, RiskLevel: record.RiskLow, ScheduledDate: time.Now().UTC()}
	auditID, err := st.Audits.Add(ctx, st.DB(), &audit)
	require.NoError(t, err)

	ncr := record.NonConformance{NcrNumber: "NCR-001", Status: record.NcrOpen, Classification: record.NcrMinor, AuditID: auditID, ProcessOwner: "QA"}
	_, err = st.NonConformances.Add(ctx, st.DB(), &ncr)
	require.NoError(t, err)

	dup := record.NonConformance{NcrNumber: "NCR-001", Status: record.NcrOpen, Classification: record.NcrMajor, AuditID: auditID, ProcessOwner: "QA"}
	_, err = st.NonConformances.Add(ctx, st.DB(), &dup)
	assert.True(t, IsConstraintViolation(err))
}

func TestCollection_Clear(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	doc := testDoc("PR-001")
	_, err := st.Documents.Add(ctx, st.DB(), &doc)
	require.NoError(t, err)

	require.NoError(t, st.Documents.Clear(ctx, st.DB()))

	n, err := st.Documents.Count(ctx, st.DB())
	require.NoError(t, err)
	assert.Zero(t, n)

	var tagRows int
	require.NoError(t, st.db.QueryRow("SELECT COUNT(*) FROM document_tags").Scan(&tagRows))
	assert.Zero(t, tagRows, "tag index rows cleared with their documents")
}

func TestCollection_DeleteBy(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	mine := testDoc("PR-001")
	theirs := testDoc("PR-002")
	theirs.Owner = "Ingested"
	_, err := st.Documents.Add(ctx, st.DB(), &mine)
	require.NoError(t, err)
	_, err = st.Documents.Add(ctx, st.DB(), &theirs)
	require.NoError(t, err)

	n, err := st.Documents.DeleteBy(ctx, st.DB(), "owner", "Ingested")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	all, err := st.Documents.All(ctx, st.DB())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "PR-001", all[0].DocNumber)
}

func TestCollection_LockedStoreFailsClosed(t *testing.T) {
	ctx := context.Background()
	st := newLockedStore(t)

	doc := testDoc("PR-001")
	_, err := st.Documents.Add(ctx, st.DB(), &doc)
	require.Error(t, err)
	assert.True(t, IsKeyNotSet(err), "writes fail closed without the key: %v", err)

	_, err = st.Documents.All(ctx, st.DB())
	// No rows exist, so the read completes without touching the codec.
	require.NoError(t, err)

	// Counting is metadata only and works while locked.
	n, err := st.Documents.Count(ctx, st.DB())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTransact_AtomicAcrossCollections(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	audit := record.Audit{AuditName: "A1", Status: record.AuditPlanned, RiskLevel: record.RiskLow, ScheduledDate: time.Now().UTC()}
	auditID, err := st.Audits.Add(ctx, st.DB(), &audit)
	require.NoError(t, err)

	// A failing step after successful writes in other collections must
	// undo all of them.
	err = st.Transact(ctx, func(tx *sql.Tx) error {
		if _, err := st.Checklists.Add(ctx, tx, &record.Checklist{AuditID: auditID, Name: "CL"}); err != nil {
			return err
		}
		doc := testDoc("TX-001")
		if _, err := st.Documents.Add(ctx, tx, &doc); err != nil {
			return err
		}
		_, err := st.NonConformances.Add(ctx, tx, &record.NonConformance{
			NcrNumber: "NCR-TX", Status: record.NcrOpen,
			Classification: record.NcrMinor, AuditID: 999, ProcessOwner: "QA",
		})
		return err
	})
	require.Error(t, err)

	checklists, err := st.Checklists.Count(ctx, st.DB())
	require.NoError(t, err)
	assert.Zero(t, checklists)
	docs, err := st.Documents.Count(ctx, st.DB())
	require.NoError(t, err)
	assert.Zero(t, docs)
}
