package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt hashes with bcrypt at a fixed cost.
type Bcrypt struct {
	cost int
}

// NewBcrypt creates a bcrypt hasher. A cost of 0 uses bcrypt.DefaultCost.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost %d", ErrInvalidConfig, cost)
	}
	return &Bcrypt{cost: cost}, nil
}

// Hash returns a bcrypt hash of plaintext.
func (b *Bcrypt) Hash(plaintext string) (string, error) {
	if len(plaintext) < MinLength {
		return "", ErrTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.cost)
	if err != nil {
		return "", fmt.Errorf("password: bcrypt: %w", err)
	}
	return string(hash), nil
}

// Verify compares plaintext against a bcrypt hash.
func (b *Bcrypt) Verify(plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", ErrInvalidHash, err)
	}
}

// NeedsUpgrade reports whether hash was made with a lower cost.
func (b *Bcrypt) NeedsUpgrade(hash string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidHash, err)
	}
	return cost < b.cost, nil
}
