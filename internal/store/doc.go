// Package store provides the encrypted, versioned SQLite persistence layer
// for Aegis compliance records.
//
// # Layout
//
// Each collection maps to one table holding the record's sealed envelope
// (iv, ciphertext) plus its indexed fields as plain columns. Indexed fields
// are the only record data outside the envelope: they exist so SQLite can
// enforce uniqueness and foreign keys and serve equality queries. The
// multi-valued document tag index lives in a side table, one row per tag.
//
// # Critical Patterns
//
// Encrypted at rest:
//   - Every write seals through the session codec, every read opens
//   - Operations fail closed (KEY_NOT_SET) while the store is locked
//
// Versioned schema:
//   - user_version tracks the applied schema version
//   - Migrations are an ordered list keyed by target version, additive only
//   - Each migration commits with its version bump or not at all
//
// Atomicity:
//   - Collection methods accept *sql.DB or *sql.Tx via DBTX
//   - Multi-collection mutations (seed, clear-all, ingestion purge+write)
//     run inside one Transact call
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: tolerate lock contention
//   - foreign_keys=ON: referential integrity at write time
package store
