package password

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

// MinLength is the shortest password Hash accepts. Verify accepts any length.
const MinLength = 8

// Hasher produces and checks one hash format.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Verify returns (false, nil) on mismatch and an error only when
//   the hash itself is unusable.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) (bool, error)
	NeedsUpgrade(hash string) (bool, error)
}

// Verifier hashes with a preferred Hasher and verifies any supported format.
// It satisfies auth.PasswordVerifier.
type Verifier struct {
	preferred Hasher
	bcrypt    *Bcrypt
	argon2    *Argon2
}

// NewVerifier creates a Verifier that hashes new passwords with preferred.
// Verification of the other format uses default parameters, which only
// matter for NeedsUpgrade since stored hashes carry their own.
func NewVerifier(preferred Hasher) *Verifier {
	v := &Verifier{preferred: preferred}
	switch h := preferred.(type) {
	case *Bcrypt:
		v.bcrypt = h
	case *Argon2:
		v.argon2 = h
	}
	if v.bcrypt == nil {
		v.bcrypt, _ = NewBcrypt(0)
	}
	if v.argon2 == nil {
		v.argon2, _ = NewArgon2(DefaultArgon2Config())
	}
	return v
}

// Hash hashes plaintext with the preferred hasher.
func (v *Verifier) Hash(plaintext string) (string, error) {
	return v.preferred.Hash(plaintext)
}

// Verify checks plaintext against a bcrypt or argon2id hash.
func (v *Verifier) Verify(plaintext, hash string) (bool, error) {
	h, err := v.hasherFor(hash)
	if err != nil {
		return false, err
	}
	return h.Verify(plaintext, hash)
}

// NeedsUpgrade reports whether hash should be replaced by a fresh Hash:
// either it uses a different format or weaker parameters than preferred.
func (v *Verifier) NeedsUpgrade(hash string) (bool, error) {
	h, err := v.hasherFor(hash)
	if err != nil {
		return false, err
	}
	if h != v.preferred {
		return true, nil
	}
	return h.NeedsUpgrade(hash)
}

func (v *Verifier) hasherFor(hash string) (Hasher, error) {
	switch {
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return v.bcrypt, nil
	case strings.HasPrefix(hash, "$"+argon2ID+"$"):
		return v.argon2, nil
	default:
		return nil, ErrUnsupportedHash
	}
}

// DecoyHash hashes a random password with h. Verifying against it costs the
// same as verifying a real user's password and never succeeds in practice.
func DecoyHash(h Hasher) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return h.Hash(base64.RawURLEncoding.EncodeToString(buf))
}
