package store

import "github.com/aegisaudit/aegis/internal/record"

// Collection table mappings. Index columns are the compatibility-significant
// indexed fields of §6 of the persisted schema: they are the only record
// fields that exist outside the sealed envelope.

func (s *Store) bindCollections() {
	s.Documents = newCollection(s, TableSpec[record.Document]{
		Table: "documents",
		GetID: func(d *record.Document) int64 { return d.ID },
		SetID: func(d *record.Document, id int64) { d.ID = id },
		Index: func(d *record.Document) []IndexValue {
			return []IndexValue{
				{Column: "doc_number", Value: d.DocNumber},
				{Column: "owner", Value: d.Owner},
			}
		},
		Multi: &MultiIndex[record.Document]{
			Table:  "document_tags",
			Parent: "document_id",
			Column: "tag",
			Values: func(d *record.Document) []string { return d.Tags },
		},
	})

	s.Audits = newCollection(s, TableSpec[record.Audit]{
		Table: "audits",
		GetID: func(a *record.Audit) int64 { return a.ID },
		SetID: func(a *record.Audit, id int64) { a.ID = id },
		Index: func(a *record.Audit) []IndexValue {
			return []IndexValue{{Column: "audit_name", Value: a.AuditName}}
		},
	})

	s.NonConformances = newCollection(s, TableSpec[record.NonConformance]{
		Table: "non_conformances",
		GetID: func(n *record.NonConformance) int64 { return n.ID },
		SetID: func(n *record.NonConformance, id int64) { n.ID = id },
		Index: func(n *record.NonConformance) []IndexValue {
			return []IndexValue{
				{Column: "ncr_number", Value: n.NcrNumber},
				{Column: "audit_id", Value: n.AuditID},
			}
		},
	})

	s.Kpis = newCollection(s, TableSpec[record.Kpi]{
		Table: "kpis",
		GetID: func(k *record.Kpi) int64 { return k.ID },
		SetID: func(k *record.Kpi, id int64) { k.ID = id },
		Index: func(k *record.Kpi) []IndexValue {
			return []IndexValue{{Column: "name", Value: k.Name}}
		},
	})

	s.Checklists = newCollection(s, TableSpec[record.Checklist]{
		Table: "checklists",
		GetID: func(c *record.Checklist) int64 { return c.ID },
		SetID: func(c *record.Checklist, id int64) { c.ID = id },
		Index: func(c *record.Checklist) []IndexValue {
			return []IndexValue{{Column: "audit_id", Value: c.AuditID}}
		},
	})

	s.ChecklistItems = newCollection(s, TableSpec[record.ChecklistItem]{
		Table: "checklist_items",
		GetID: func(i *record.ChecklistItem) int64 { return i.ID },
		SetID: func(i *record.ChecklistItem, id int64) { i.ID = id },
		Index: func(i *record.ChecklistItem) []IndexValue {
			return []IndexValue{{Column: "checklist_id", Value: i.ChecklistID}}
		},
	})

	s.CapaActions = newCollection(s, TableSpec[record.CapaAction]{
		Table: "capa_actions",
		GetID: func(a *record.CapaAction) int64 { return a.ID },
		SetID: func(a *record.CapaAction, id int64) { a.ID = id },
		Index: func(a *record.CapaAction) []IndexValue {
			return []IndexValue{{Column: "ncr_id", Value: a.NcrID}}
		},
	})

	s.Evidence = newCollection(s, TableSpec[record.Evidence]{
		Table: "evidence",
		GetID: func(e *record.Evidence) int64 { return e.ID },
		SetID: func(e *record.Evidence, id int64) { e.ID = id },
		Index: func(e *record.Evidence) []IndexValue {
			return []IndexValue{
				{Column: "checklist_item_id", Value: e.ChecklistItemID},
				{Column: "document_id", Value: e.DocumentID},
			}
		},
	})
}
