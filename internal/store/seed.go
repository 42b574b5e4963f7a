package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aegisaudit/aegis/internal/record"
)

// Seed replaces the store's content with the sample compliance data set:
// two controlled documents, two audits with an ISO 9001 checklist, two NCRs,
// and three KPIs. Clearing and inserting run in one transaction across every
// collection.
func (s *Store) Seed(ctx context.Context, now time.Time) error {
	err := s.Transact(ctx, func(tx *sql.Tx) error {
		if err := s.clearAll(ctx, tx); err != nil {
			return err
		}

		if _, err := s.Documents.BulkAdd(ctx, tx, []record.Document{
			{
				Title:          "Old Safety Procedure",
				DocNumber:      "SAF-001",
				Revision:       1,
				Owner:          "System",
				Status:         record.DocumentPublished,
				NextReviewDate: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
				Tags:           []string{"safety", "procedure", "operations"},
			},
			{
				Title:          "Current Quality Manual",
				DocNumber:      "QM-002",
				Revision:       2,
				Owner:          "System",
				Status:         record.DocumentPublished,
				NextReviewDate: now.AddDate(1, 0, 0),
				Tags:           []string{"quality", "manual", "iso9001"},
			},
		}); err != nil {
			return err
		}

		auditIDs, err := s.Audits.BulkAdd(ctx, tx, []record.Audit{
			{
				AuditName:     "Q3 Internal Quality Systems Audit",
				Status:        record.AuditPlanned,
				RiskLevel:     record.RiskHigh,
				ScheduledDate: time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC),
			},
			{
				AuditName:     "Supplier Performance Review",
				Status:        record.AuditInProgress,
				RiskLevel:     record.RiskMedium,
				ScheduledDate: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
			},
		})
		if err != nil {
			return err
		}

		checklistID, err := s.Checklists.Add(ctx, tx, &record.Checklist{
			AuditID: auditIDs[0],
			Name:    "ISO 9001:2015 Core Checklist",
		})
		if err != nil {
			return err
		}
		if _, err := s.ChecklistItems.BulkAdd(ctx, tx, []record.ChecklistItem{
			{ChecklistID: checklistID, Clause: "4.1", Question: "Has the organization determined external and internal issues relevant to its purpose?", Status: record.ItemPending},
			{ChecklistID: checklistID, Clause: "4.2", Question: "Have the needs and expectations of interested parties been determined?", Status: record.ItemPending},
			{ChecklistID: checklistID, Clause: "5.1.1", Question: "Does top management demonstrate leadership and commitment with respect to the QMS?", Status: record.ItemPending},
		}); err != nil {
			return err
		}

		if _, err := s.NonConformances.BulkAdd(ctx, tx, []record.NonConformance{
			{NcrNumber: "NCR-001", Status: record.NcrOpen, Classification: record.NcrMajor, AuditID: auditIDs[0], ProcessOwner: "Production Dept"},
			{NcrNumber: "NCR-002", Status: record.NcrClosed, Classification: record.NcrMinor, AuditID: auditIDs[1], ProcessOwner: "Purchasing Dept"},
		}); err != nil {
			return err
		}

		if _, err := s.Kpis.BulkAdd(ctx, tx, []record.Kpi{
			{Name: "Reduce Major Non-Conformances", ObjectiveID: 1, Target: 5, Value: 2, Period: "Q3 2025"},
			{Name: "Complete All Scheduled Audits", ObjectiveID: 2, Target: 10, Value: 9, Period: "Q3 2025"},
			{Name: "On-Time Document Review Rate", ObjectiveID: 1, Target: 100, Value: 75, Period: "Q3 2025"},
		}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	s.log.Info("seeded sample data")
	return nil
}

// ClearAll empties every collection atomically.
func (s *Store) ClearAll(ctx context.Context) error {
	err := s.Transact(ctx, func(tx *sql.Tx) error {
		return s.clearAll(ctx, tx)
	})
	if err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	s.log.Info("cleared all collections")
	return nil
}

// clearAll deletes child collections before their parents so foreign keys
// hold at every point inside the transaction.
func (s *Store) clearAll(ctx context.Context, tx *sql.Tx) error {
	if err := s.Evidence.Clear(ctx, tx); err != nil {
		return err
	}
	if err := s.CapaActions.Clear(ctx, tx); err != nil {
		return err
	}
	if err := s.ChecklistItems.Clear(ctx, tx); err != nil {
		return err
	}
	if err := s.Checklists.Clear(ctx, tx); err != nil {
		return err
	}
	if err := s.NonConformances.Clear(ctx, tx); err != nil {
		return err
	}
	if err := s.Kpis.Clear(ctx, tx); err != nil {
		return err
	}
	if err := s.Audits.Clear(ctx, tx); err != nil {
		return err
	}
	return s.Documents.Clear(ctx, tx)
}
