package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum HS256 signing key size in bytes.
const MinSecretLength = 32

// CodecConfig configures the token codec.
type CodecConfig struct {
	// Secret is the HMAC-SHA256 signing key. It must be at least
	// MinSecretLength bytes and is never logged.
	Secret []byte

	// Validity is how long an issued token is accepted.
	Validity time.Duration

	// Issuer is written to and required in the iss claim when set.
	Issuer string
}

// Claims are the verified contents of a token.
type Claims struct {
	Subject   string
	Roles     Roles
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenClaims is the wire form of the payload segment.
type tokenClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Codec signs and verifies compact HS256 tokens.
//
// Contract:
// - Concurrency: a Codec is immutable after construction and safe for concurrent use.
// - Errors: Verify returns ErrTokenMalformed, ErrTokenBadSignature or ErrTokenExpired.
// - Time: callers pass the clock value; the codec never reads the wall clock.
type Codec struct {
	secret   []byte
	validity time.Duration
	issuer   string
	options  []jwt.ParserOption
}

// NewCodec creates a codec from the given configuration.
func NewCodec(config CodecConfig) (*Codec, error) {
	if len(config.Secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: signing secret must be at least %d bytes", MinSecretLength)
	}
	if config.Validity < time.Second || config.Validity%time.Second != 0 {
		return nil, ErrInvalidValidity
	}

	secret := make([]byte, len(config.Secret))
	copy(secret, config.Secret)

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}

	return &Codec{
		secret:   secret,
		validity: config.Validity,
		issuer:   config.Issuer,
		options:  slices.Clip(opts),
	}, nil
}

// Validity returns the configured token lifetime.
func (c *Codec) Validity() time.Duration {
	return c.validity
}

// Issue mints a signed token for subject with the given roles. The token is
// valid from now (truncated to the second) for the configured validity.
func (c *Codec) Issue(subject string, roles Roles, now time.Time) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", ErrMissingSubject
	}

	issuedAt := now.Truncate(time.Second)
	names := roles.Slice()
	if names == nil {
		names = []string{}
	}

	claims := tokenClaims{
		Roles: names,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(c.validity)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks structure, signature and expiry of token at time now.
//
// The signature is verified before any claim is trusted; a token is accepted
// only while now is strictly before its expiry.
func (c *Codec) Verify(token string, now time.Time) (*Claims, error) {
	if token == "" {
		return nil, ErrTokenMalformed
	}

	opts := append(c.options, jwt.WithTimeFunc(func() time.Time { return now }))

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, classifyJWTError(err)
	}

	if claims.Subject == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrTokenMalformed
	}

	return &Claims{
		Subject:   claims.Subject,
		Roles:     NewRoles(claims.Roles...),
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// classifyJWTError folds library errors into the three token failure kinds.
func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenMalformed
	}
}
