package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	argon2ID              = "argon2id"
)

// Argon2Config holds argon2id cost parameters.
type Argon2Config struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Config follows the RFC 9106 second recommended option.
func DefaultArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (c Argon2Config) validate() error {
	switch {
	case c.Memory < minMemoryKB:
		return fmt.Errorf("%w: argon2 memory must be >= %d KiB", ErrInvalidConfig, minMemoryKB)
	case c.Time < minTimeCost:
		return fmt.Errorf("%w: argon2 time must be >= %d", ErrInvalidConfig, minTimeCost)
	case c.Parallelism < minParallelism:
		return fmt.Errorf("%w: argon2 parallelism must be >= %d", ErrInvalidConfig, minParallelism)
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("%w: argon2 salt length must be >= %d", ErrInvalidConfig, minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("%w: argon2 key length must be >= %d", ErrInvalidConfig, minKeyLength)
	}
	return nil
}

// Argon2 hashes with argon2id and encodes results as PHC strings.
type Argon2 struct {
	config Argon2Config
}

// NewArgon2 creates an argon2id hasher.
func NewArgon2(cfg Argon2Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

// Hash returns a PHC-encoded argon2id hash of plaintext.
func (a *Argon2) Hash(plaintext string) (string, error) {
	if len(plaintext) < MinLength {
		return "", ErrTooShort
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(plaintext), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2ID,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify compares plaintext against a PHC-encoded argon2id hash using the
// parameters stored in the hash.
func (a *Argon2) Verify(plaintext, encoded string) (bool, error) {
	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(plaintext), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(computed, p.key) == 1, nil
}

// NeedsUpgrade reports whether encoded was made with weaker parameters than
// the hasher's.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return a.config.Memory > p.memory ||
		a.config.Time > p.time ||
		a.config.Parallelism > p.parallelism ||
		a.config.KeyLength != uint32(len(p.key)), nil
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parsePHC(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: not a PHC string", ErrInvalidHash)
	}
	if parts[1] != argon2ID {
		return nil, ErrUnsupportedHash
	}

	version, found := strings.CutPrefix(parts[2], "v=")
	if !found {
		return nil, fmt.Errorf("%w: missing argon2 version", ErrInvalidHash)
	}
	if v, err := strconv.Atoi(version); err != nil || v != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported argon2 version %q", ErrInvalidHash, version)
	}

	p := &phc{}
	if err := p.parseParams(parts[3]); err != nil {
		return nil, err
	}

	var err error
	if p.salt, err = decodeB64(parts[4]); err != nil || len(p.salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: bad salt", ErrInvalidHash)
	}
	if p.key, err = decodeB64(parts[5]); err != nil || len(p.key) == 0 {
		return nil, fmt.Errorf("%w: bad key", ErrInvalidHash)
	}
	return p, nil
}

func (p *phc) parseParams(s string) error {
	var seen int
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("%w: bad parameter %q", ErrInvalidHash, pair)
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || uint32(n) < minMemoryKB {
				return fmt.Errorf("%w: bad memory parameter", ErrInvalidHash)
			}
			p.memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || uint32(n) < minTimeCost {
				return fmt.Errorf("%w: bad time parameter", ErrInvalidHash)
			}
			p.time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || uint8(n) < minParallelism {
				return fmt.Errorf("%w: bad parallelism parameter", ErrInvalidHash)
			}
			p.parallelism = uint8(n)
		default:
			return fmt.Errorf("%w: unknown parameter %q", ErrInvalidHash, k)
		}
		seen++
	}
	if seen != 3 || p.memory == 0 || p.time == 0 || p.parallelism == 0 {
		return fmt.Errorf("%w: missing parameters", ErrInvalidHash)
	}
	return nil
}

// decodeB64 accepts both the unpadded PHC encoding and padded base64.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}
