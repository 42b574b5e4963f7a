// Package codec seals records into authenticated encryption envelopes.
//
// A Session holds the AES-256-GCM key for one process lifetime. The key is
// derived from a passphrase and a per-installation salt via PBKDF2-SHA256
// (100000 iterations) and exists only in volatile memory: it is never
// persisted, so every process restart re-derives it before any encrypted
// read or write is possible.
//
// The envelope format is compatibility-significant:
//
//	{ iv: base64(12 random bytes), ciphertext: base64(AEAD-sealed canonical JSON) }
//
// Nonces are drawn fresh from crypto/rand on every Encode. A repeated nonce
// under a given key breaks confidentiality, so envelopes are never re-sealed
// in place.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/aegisaudit/aegis/internal/record"
)

const (
	// Iterations is the PBKDF2 iteration count. Fixed: changing it would
	// orphan every envelope sealed under the old derivation.
	Iterations = 100_000

	// SaltSize is the per-installation KDF salt length in bytes.
	SaltSize = 16

	keySize   = 32 // AES-256
	nonceSize = 12 // GCM standard nonce
)

// ErrDecryptionFailed reports a bad key, a tampered or corrupt envelope, or
// a structural mismatch in the decrypted payload. Decode never returns
// partially decoded or unauthenticated data alongside it.
var ErrDecryptionFailed = errors.New("decryption failed")

// Envelope is the encrypted-at-rest representation of one record.
type Envelope struct {
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext"`
}

// Session is a derived encryption key bound to one process session.
type Session struct {
	aead cipher.AEAD
}

// NewSalt returns a fresh random per-installation KDF salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("codec: generate salt: %w", err)
	}
	return salt, nil
}

// NewSession derives the session key from a passphrase and salt.
// Derivation is deliberately slow (PBKDF2 at a high fixed iteration count);
// callers should derive once and hold the Session for the process lifetime.
func NewSession(passphrase string, salt []byte) (*Session, error) {
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("codec: salt must be %d bytes, got %d", SaltSize, len(salt))
	}
	key := pbkdf2.Key([]byte(passphrase), salt, Iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("codec: init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("codec: init aead: %w", err)
	}
	return &Session{aead: aead}, nil
}

// Encode serializes a record to canonical bytes and seals it under a fresh
// random nonce.
func (s *Session) Encode(rec any) (Envelope, error) {
	plaintext, err := record.MarshalCanonical(rec)
	if err != nil {
		return Envelope{}, fmt.Errorf("codec: encode: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return Envelope{}, fmt.Errorf("codec: encode: nonce: %w", err)
	}

	sealed := s.aead.Seal(nil, nonce, plaintext, nil)
	return Envelope{
		IV:         base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
	}, nil
}

// Decode authenticates and opens an envelope into rec. Any failure (bad
// base64, wrong nonce length, failed authentication, or a payload that does
// not unmarshal into rec) is reported as ErrDecryptionFailed.
func (s *Session) Decode(env Envelope, rec any) error {
	nonce, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return fmt.Errorf("%w: malformed iv", ErrDecryptionFailed)
	}
	if len(nonce) != nonceSize {
		return fmt.Errorf("%w: iv must be %d bytes", ErrDecryptionFailed, nonceSize)
	}
	sealed, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return fmt.Errorf("%w: malformed ciphertext", ErrDecryptionFailed)
	}

	plaintext, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return fmt.Errorf("%w: authentication", ErrDecryptionFailed)
	}

	if err := record.UnmarshalCanonical(plaintext, rec); err != nil {
		return fmt.Errorf("%w: structure", ErrDecryptionFailed)
	}
	return nil
}
