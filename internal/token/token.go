// ABOUTME: EdDSA JWT issuance and verification for session tokens
// ABOUTME: The auth service signs with the private key, any service verifies with the public key

package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token errors
var (
	ErrMalformed    = errors.New("malformed token")
	ErrExpired      = errors.New("token expired")
	ErrWrongKind    = errors.New("wrong token kind")
	ErrMissingClaim = errors.New("missing required claim")
)

// Kind distinguishes short-lived access tokens from long-lived refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Default TTLs. The exact magnitudes are a config concern; the invariant is
// that refresh substantially outlives access so sessions renew silently.
const (
	DefaultAccessTTL  = 5 * time.Minute
	DefaultRefreshTTL = 14 * 24 * time.Hour
)

// Claims is the claim set embedded in every session token.
// Kind is serialized as "type" for compatibility with existing clients.
type Claims struct {
	jwt.RegisteredClaims
	Kind Kind `json:"type"`
}

// Issuer signs new session tokens. Only the auth service holds one.
type Issuer struct {
	key ed25519.PrivateKey
}

// NewIssuer creates an issuer from an Ed25519 private key.
func NewIssuer(key ed25519.PrivateKey) *Issuer {
	return &Issuer{key: key}
}

// Issue creates a signed token for the subject with a fresh jti.
// The jti makes every token distinguishable, which keeps the door open for
// revocation lists without a format change.
func (i *Issuer) Issue(subject string, kind Kind, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return tok.SignedString(i.key)
}

// Verifier checks tokens using only the public half of the signing key.
// Services holding a Verifier can authenticate callers but never forge tokens.
type Verifier struct {
	key ed25519.PublicKey
}

// NewVerifier creates a verifier from an Ed25519 public key.
func NewVerifier(key ed25519.PublicKey) *Verifier {
	return &Verifier{key: key}
}

// Verify decodes the token, checks the signature, and enforces the expected
// kind. exp and sub are required claims.
func (v *Verifier) Verify(tokenString string, want Kind) (*Claims, error) {
	claims := &Claims{}

	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if !tok.Valid {
		return nil, ErrMalformed
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	if claims.Kind != want {
		return nil, ErrWrongKind
	}

	return claims, nil
}
