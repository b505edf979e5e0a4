package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/moimpay/moim-backend/models"
)

var (
	// ErrBadSignature is returned when the token signature does not match the signing key
	ErrBadSignature = errors.New("token signature mismatch")

	// ErrExpired is returned when the token is past its expiry
	ErrExpired = errors.New("token expired")

	// ErrMalformed is returned when the token payload cannot be parsed
	ErrMalformed = errors.New("token malformed")

	// ErrMissingRole is returned when an access token carries no role claim
	ErrMissingRole = errors.New("token carries no role claim")
)

// AccessClaims are the claims embedded in an access token
type AccessClaims struct {
	Role models.UserRole `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// VerifiedAccess is the result of a successful access-token verification
type VerifiedAccess struct {
	Subject   string
	Role      models.UserRole
	ExpiresAt time.Time
}

// Codec creates and verifies the signed access and refresh tokens. It is a
// pure function of the process-wide symmetric key: no I/O, safe for
// concurrent use, and the key is never mutated after construction.
type Codec struct {
	key []byte
}

// NewCodec creates a Codec over the given symmetric signing key.
// Key misconfiguration is rejected here, at startup, not per call.
func NewCodec(secret string) (*Codec, error) {
	if len(secret) < 32 {
		return nil, errors.New("signing key must be at least 32 bytes")
	}
	return &Codec{key: []byte(secret)}, nil
}

// IssueAccess mints a signed access token carrying the subject, its role,
// and an expiry of now + ttl.
func (c *Codec) IssueAccess(subject string, role models.UserRole, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	if !role.Valid() {
		return "", fmt.Errorf("invalid role %q", role)
	}
	now := time.Now()
	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// IssueRefresh mints a signed token carrying only an expiry and a random
// token id. No subject is embedded: the mapping to a user lives only in the
// refresh-token store, which is what makes the server-side reuse check
// meaningful. The token id keeps back-to-back mints distinct; timestamps
// alone have second precision.
func (c *Codec) IssueRefresh(ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// VerifyAccess checks signature and expiry and requires a role claim.
// Fails with ErrBadSignature, ErrExpired, ErrMalformed, or ErrMissingRole.
func (c *Codec) VerifyAccess(tokenString string) (*VerifiedAccess, error) {
	claims := &AccessClaims{}
	if err := c.parse(tokenString, claims, true); err != nil {
		return nil, err
	}
	if claims.Role == "" {
		return nil, ErrMissingRole
	}
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return &VerifiedAccess{
		Subject:   claims.Subject,
		Role:      claims.Role,
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyRefresh checks signature and expiry only. Refresh tokens carry no
// subject and no role, so no claim content is validated beyond expiry.
func (c *Codec) VerifyRefresh(tokenString string) error {
	return c.parse(tokenString, &jwt.RegisteredClaims{}, true)
}

// ExtractSubject recovers the subject claim from an access token whose
// expiry is deliberately ignored: a refresh call is expected to arrive with
// an already-expired access token. The signature is still required to
// match, so a forged token cannot name a principal.
func (c *Codec) ExtractSubject(tokenString string) (string, error) {
	claims := &AccessClaims{}
	if err := c.parse(tokenString, claims, false); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", ErrMalformed
	}
	return claims.Subject, nil
}

func (c *Codec) parse(tokenString string, claims jwt.Claims, validateClaims bool) error {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if !validateClaims {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	parser := jwt.NewParser(opts...)

	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return ErrBadSignature
		default:
			return ErrMalformed
		}
	}
	return nil
}
