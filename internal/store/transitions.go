package store

import (
	"context"
	"fmt"

	"github.com/aegisaudit/aegis/internal/record"
)

// Status-transition operations. Each is a single in-place update; the
// record keeps its id and every other field.

// AdvanceAudit moves an audit one step along Planned -> In Progress ->
// Completed. Advancing a completed audit is a no-op.
func (s *Store) AdvanceAudit(ctx context.Context, id int64) error {
	return s.Audits.Update(ctx, s.db, id, func(a *record.Audit) {
		switch a.Status {
		case record.AuditPlanned:
			a.Status = record.AuditInProgress
		case record.AuditInProgress:
			a.Status = record.AuditCompleted
		}
	})
}

// SetChecklistItemStatus records an audit finding on a checklist item.
func (s *Store) SetChecklistItemStatus(ctx context.Context, id int64, status record.ItemStatus) error {
	return s.ChecklistItems.Update(ctx, s.db, id, func(i *record.ChecklistItem) {
		i.Status = status
	})
}

// SetCapaActionStatus opens or completes a CAPA action.
func (s *Store) SetCapaActionStatus(ctx context.Context, id int64, status record.CapaStatus) error {
	return s.CapaActions.Update(ctx, s.db, id, func(a *record.CapaAction) {
		a.Status = status
	})
}

// IncrementKpi adds delta to a KPI's current value.
func (s *Store) IncrementKpi(ctx context.Context, id int64, delta float64) error {
	return s.Kpis.Update(ctx, s.db, id, func(k *record.Kpi) {
		k.Value += delta
	})
}

// PublishDocument transitions a draft document to Published.
func (s *Store) PublishDocument(ctx context.Context, id int64) error {
	var invalid error
	err := s.Documents.Update(ctx, s.db, id, func(d *record.Document) {
		if d.Status != record.DocumentDraft {
			invalid = fmt.Errorf("publish document %d: status is %q, not Draft", id, d.Status)
			return
		}
		d.Status = record.DocumentPublished
	})
	if err != nil {
		return err
	}
	return invalid
}
