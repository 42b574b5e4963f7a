package store

import (
	"database/sql"
	"fmt"
)

// A migration moves the schema to Version. Migrations are additive only:
// they declare new collections and indexes and never drop or rewrite rows
// from prior versions. Each Apply must apply cleanly to any store whose
// version is below Version.
type migration struct {
	Version int
	Name    string
	Apply   func(tx *sql.Tx) error
}

// Schema history. Versions are monotonically increasing; opening a store
// runs every migration above the last-applied version, in ascending order,
// before any query is served.
var migrations = []migration{
	{
		Version: 1,
		Name:    "core collections",
		Apply: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS documents (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					doc_number TEXT NOT NULL UNIQUE,
					owner TEXT NOT NULL,
					iv TEXT NOT NULL,
					ciphertext TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS document_tags (
					document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
					tag TEXT NOT NULL,
					PRIMARY KEY (document_id, tag)
				)`,
				`CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner)`,
				`CREATE INDEX IF NOT EXISTS idx_document_tags_tag ON document_tags(tag)`,
				`CREATE TABLE IF NOT EXISTS audits (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					audit_name TEXT NOT NULL,
					iv TEXT NOT NULL,
					ciphertext TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_audits_name ON audits(audit_name)`,
				`CREATE TABLE IF NOT EXISTS non_conformances (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					ncr_number TEXT NOT NULL UNIQUE,
					audit_id INTEGER NOT NULL REFERENCES audits(id),
					iv TEXT NOT NULL,
					ciphertext TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS kpis (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					iv TEXT NOT NULL,
					ciphertext TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_kpis_name ON kpis(name)`,
			)
		},
	},
	{
		Version: 2,
		Name:    "checklists",
		Apply: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS checklists (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					audit_id INTEGER NOT NULL REFERENCES audits(id),
					iv TEXT NOT NULL,
					ciphertext TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_checklists_audit ON checklists(audit_id)`,
				`CREATE TABLE IF NOT EXISTS checklist_items (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					checklist_id INTEGER NOT NULL REFERENCES checklists(id),
					iv TEXT NOT NULL,
					ciphertext TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_checklist_items_checklist ON checklist_items(checklist_id)`,
			)
		},
	},
	{
		Version: 3,
		Name:    "capa actions and evidence",
		Apply: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS capa_actions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					ncr_id INTEGER NOT NULL REFERENCES non_conformances(id),
					iv TEXT NOT NULL,
					ciphertext TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_capa_actions_ncr ON capa_actions(ncr_id)`,
				`CREATE TABLE IF NOT EXISTS evidence (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					checklist_item_id INTEGER NOT NULL REFERENCES checklist_items(id),
					document_id INTEGER NOT NULL REFERENCES documents(id),
					iv TEXT NOT NULL,
					ciphertext TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_evidence_item ON evidence(checklist_item_id)`,
				`CREATE INDEX IF NOT EXISTS idx_evidence_document ON evidence(document_id)`,
			)
		},
	},
}

// currentSchemaVersion is the highest version in the migration list.
var currentSchemaVersion = migrations[len(migrations)-1].Version

// runMigrations applies every pending migration based on user_version.
// Each migration commits in its own transaction together with its version
// bump, so a failure leaves the store at the last fully applied version,
// never with a partial schema.
func runMigrations(db *sql.DB, upTo int) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return &Error{Code: CodeMigrationFailed, Op: "get user_version", Err: err}
	}

	for _, m := range migrations {
		if m.Version <= version || m.Version > upTo {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
		version = m.Version
	}
	return nil
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return &Error{Code: CodeMigrationFailed, Op: fmt.Sprintf("begin migration v%d", m.Version), Err: err}
	}
	defer tx.Rollback() // No-op if committed

	if err := m.Apply(tx); err != nil {
		return &Error{Code: CodeMigrationFailed, Op: fmt.Sprintf("apply %q (v%d)", m.Name, m.Version), Err: err}
	}
	// PRAGMA user_version cannot be parameterized.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return &Error{Code: CodeMigrationFailed, Op: fmt.Sprintf("set user_version %d", m.Version), Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &Error{Code: CodeMigrationFailed, Op: fmt.Sprintf("commit migration v%d", m.Version), Err: err}
	}
	return nil
}

func execAll(tx *sql.Tx, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("exec %.40q: %w", stmt, err)
		}
	}
	return nil
}
