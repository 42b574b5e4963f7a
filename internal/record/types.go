package record

import "time"

// DocumentStatus is the lifecycle state of a controlled document.
type DocumentStatus string

const (
	DocumentDraft     DocumentStatus = "Draft"
	DocumentPublished DocumentStatus = "Published"
	DocumentArchived  DocumentStatus = "Archived"
)

// AuditStatus tracks an audit through its schedule.
type AuditStatus string

const (
	AuditPlanned    AuditStatus = "Planned"
	AuditInProgress AuditStatus = "In Progress"
	AuditCompleted  AuditStatus = "Completed"
)

// RiskLevel grades an audit's risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// NcrStatus is the open/closed state of a non-conformance record.
type NcrStatus string

const (
	NcrOpen   NcrStatus = "Open"
	NcrClosed NcrStatus = "Closed"
)

// NcrClassification grades a non-conformance's severity.
type NcrClassification string

const (
	NcrMinor NcrClassification = "Minor"
	NcrMajor NcrClassification = "Major"
)

// CapaStatus is the state of a corrective/preventive action.
type CapaStatus string

const (
	CapaOpen      CapaStatus = "Open"
	CapaCompleted CapaStatus = "Completed"
)

// ItemStatus is the audit finding recorded against a checklist item.
type ItemStatus string

const (
	ItemPending       ItemStatus = "Pending"
	ItemConforming    ItemStatus = "Conforming"
	ItemNonConforming ItemStatus = "Non-Conforming"
	ItemNotApplicable ItemStatus = "N/A"
)

// Document is a controlled document under review cycles.
//
// ID is assigned by the store on insert and lives in the row key, not in the
// sealed record body (statically excluded from serialization). DocNumber is
// unique across the collection.
type Document struct {
	ID             int64          `json:"-"`
	Title          string         `json:"title"`
	DocNumber      string         `json:"docNumber"`
	Revision       int            `json:"revision"`
	Owner          string         `json:"owner"`
	Status         DocumentStatus `json:"status"`
	NextReviewDate time.Time      `json:"nextReviewDate"`
	Tags           []string       `json:"tags,omitempty"`
}

// Audit is a scheduled or executed audit engagement.
type Audit struct {
	ID            int64       `json:"-"`
	AuditName     string      `json:"auditName"`
	Status        AuditStatus `json:"status"`
	RiskLevel     RiskLevel   `json:"riskLevel"`
	ScheduledDate time.Time   `json:"scheduledDate"`
}

// NonConformance is a logged deviation found during an audit.
// NcrNumber is unique across the collection; AuditID must reference an
// existing audit at write time.
type NonConformance struct {
	ID             int64             `json:"-"`
	NcrNumber      string            `json:"ncrNumber"`
	Status         NcrStatus         `json:"status"`
	Classification NcrClassification `json:"classification"`
	AuditID        int64             `json:"auditId"`
	ProcessOwner   string            `json:"processOwner"`
}

// CapaAction is a remediation task linked to a non-conformance.
type CapaAction struct {
	ID          int64      `json:"-"`
	NcrID       int64      `json:"ncrId"`
	Description string     `json:"description"`
	Assignee    string     `json:"assignee"`
	DueDate     time.Time  `json:"dueDate"`
	Status      CapaStatus `json:"status"`
}

// Checklist groups the items executed during one audit.
type Checklist struct {
	ID      int64  `json:"-"`
	AuditID int64  `json:"auditId"`
	Name    string `json:"name"`
}

// ChecklistItem is a single clause question on a checklist.
type ChecklistItem struct {
	ID          int64      `json:"-"`
	ChecklistID int64      `json:"checklistId"`
	Clause      string     `json:"clause"`
	Question    string     `json:"question"`
	Status      ItemStatus `json:"status"`
}

// Evidence links a document to a checklist item as audit evidence.
type Evidence struct {
	ID              int64     `json:"-"`
	ChecklistItemID int64     `json:"checklistItemId"`
	DocumentID      int64     `json:"documentId"`
	Notes           string    `json:"notes"`
	Timestamp       time.Time `json:"timestamp"`
}

// Kpi is a tracked metric with a target and current value.
type Kpi struct {
	ID          int64   `json:"-"`
	Name        string  `json:"name"`
	ObjectiveID int64   `json:"objectiveId"`
	Target      float64 `json:"target"`
	Value       float64 `json:"value"`
	Period      string  `json:"period"`
}
