// Package record defines the typed records persisted by the Aegis store:
// one concrete type per collection, the status enumerations they use, and
// the canonical JSON form that is sealed into encryption envelopes.
//
// Record identity (the ID field) is assigned by the store on insert and is
// deliberately excluded from canonical serialization: identity lives in the
// row key, never inside the sealed body, so a record's bytes are fully
// determined by its content.
package record
