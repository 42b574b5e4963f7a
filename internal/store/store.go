package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/aegisaudit/aegis/internal/codec"
	"github.com/aegisaudit/aegis/internal/record"
)

// Store is the encrypted, versioned record store. It owns one SQLite
// database and exposes a typed collection handle per record type.
//
// The store opens locked: schema migrations run without the key, but every
// collection operation fails with KEY_NOT_SET until Unlock derives the
// session key from the passphrase and the per-installation salt. The derived
// key is held only in memory, never persisted.
type Store struct {
	db      *sql.DB
	log     *zap.Logger
	session *codec.Session

	Documents       *Collection[record.Document]
	Audits          *Collection[record.Audit]
	NonConformances *Collection[record.NonConformance]
	Kpis            *Collection[record.Kpi]
	Checklists      *Collection[record.Checklist]
	ChecklistItems  *Collection[record.ChecklistItem]
	CapaActions     *Collection[record.CapaAction]
	Evidence        *Collection[record.Evidence]
}

// Option configures a Store at open time.
type Option func(*options)

type options struct {
	log        *zap.Logger
	maxVersion int
}

// WithLogger attaches a logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// withMaxVersion caps the migration chain. Test hook for exercising
// version-by-version upgrades.
func withMaxVersion(v int) Option {
	return func(o *options) { o.maxVersion = v }
}

// Open creates or opens the database at path, applies pragmas, and runs all
// pending schema migrations before returning. Idempotent: safe to call on an
// existing database at any prior schema version.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout
//   - Foreign key enforcement
func Open(path string, opts ...Option) (*Store, error) {
	o := options{log: zap.NewNop(), maxVersion: currentSchemaVersion}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY between our own transactions.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := ensureMeta(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init meta: %w", err)
	}
	if err := runMigrations(db, o.maxVersion); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, log: o.log}
	s.bindCollections()
	return s, nil
}

// Unlock derives the session key from the passphrase and the stored
// per-installation salt. Must be called exactly once per session before any
// collection operation; the derivation is deliberately slow.
func (s *Store) Unlock(passphrase string) error {
	if s.session != nil {
		return fmt.Errorf("unlock: session key already set")
	}
	salt, err := s.kdfSalt()
	if err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	session, err := codec.NewSession(passphrase, salt)
	if err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	s.session = session
	s.log.Info("store unlocked")
	return nil
}

// Unlocked reports whether the session key has been derived.
func (s *Store) Unlocked() bool {
	return s.session != nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the handle collection methods use for operations outside a
// transaction. Inside Transact, pass the *sql.Tx instead.
func (s *Store) DB() DBTX {
	return s.db
}

// SchemaVersion reports the applied schema version.
func (s *Store) SchemaVersion() (int, error) {
	var v int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	return v, nil
}

// InstallID returns the random id assigned to this installation on first open.
func (s *Store) InstallID() (string, error) {
	return s.metaValue("install_id")
}

// Transact runs fn inside one transaction. Every collection mutation made
// through the passed handle commits or rolls back as a unit, across
// collections with different schemas.
func (s *Store) Transact(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// ensureMeta creates the meta table and seeds the per-installation values:
// a random install id and the KDF salt. The salt is not secret, only the
// derived key is, so it lives here in the clear and is readable before unlock.
func ensureMeta(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		return err
	}

	salt, err := codec.NewSalt()
	if err != nil {
		return err
	}
	if _, err := db.Exec(
		`INSERT INTO meta (key, value) VALUES ('kdf_salt', ?) ON CONFLICT(key) DO NOTHING`,
		base64.StdEncoding.EncodeToString(salt),
	); err != nil {
		return err
	}
	if _, err := db.Exec(
		`INSERT INTO meta (key, value) VALUES ('install_id', ?) ON CONFLICT(key) DO NOTHING`,
		uuid.NewString(),
	); err != nil {
		return err
	}
	return nil
}

func (s *Store) metaValue(key string) (string, error) {
	var v string
	if err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&v); err != nil {
		return "", fmt.Errorf("meta %q: %w", key, err)
	}
	return v, nil
}

func (s *Store) kdfSalt() ([]byte, error) {
	encoded, err := s.metaValue("kdf_salt")
	if err != nil {
		return nil, err
	}
	salt, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("meta kdf_salt: %w", err)
	}
	return salt, nil
}
