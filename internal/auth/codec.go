package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var strictSegment = base64.RawURLEncoding.Strict()

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims describes the JWT payload.
type Claims struct {
	Roles []string  `json:"roles,omitempty"`
	Type  TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 tokens with a fixed secret.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

// CodecOption customizes a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

// NewTokenCodec builds a codec. The secret is copied so later mutation by the caller has no effect.
func NewTokenCodec(secret []byte, opts ...CodecOption) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing secret is empty")
	}
	c := &TokenCodec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue builds and signs an access token for the subject and returns it with its expiry.
func (c *TokenCodec) Issue(subject string, roles []string, ttl time.Duration) (string, time.Time, error) {
	return c.sign(subject, roles, TokenTypeAccess, ttl)
}

// IssueRefresh builds and signs a refresh token. Refresh tokens carry no roles.
func (c *TokenCodec) IssueRefresh(subject string, ttl time.Duration) (string, time.Time, error) {
	return c.sign(subject, nil, TokenTypeRefresh, ttl)
}

func (c *TokenCodec) sign(subject string, roles []string, typ TokenType, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("token subject is empty")
	}
	issuedAt := c.now()
	expiresAt := expiryFor(issuedAt, ttl)
	claims := &Claims{
		Roles: append([]string(nil), roles...),
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks the signature and expiry of a token and returns its claims.
func (c *TokenCodec) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		return nil, classify(tokenStr, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}
	// the parser accepts exp == now; a token is already dead at its expiry instant
	if !c.now().Before(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w: expired at %s", ErrTokenExpired, claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
	}
	return claims, nil
}

// expiryFor rounds a fractional expiry up to the next whole second; NumericDate keeps
// whole seconds only. A non-positive ttl is never extended.
func expiryFor(issuedAt time.Time, ttl time.Duration) time.Time {
	expiresAt := issuedAt.Add(ttl)
	if ttl <= 0 {
		return expiresAt
	}
	if whole := expiresAt.Truncate(time.Second); whole.Before(expiresAt) {
		return whole.Add(time.Second)
	}
	return expiresAt
}

func classify(tokenStr string, err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenMalformed) && corruptSignatureSegment(tokenStr):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}

// corruptSignatureSegment reports whether header and payload are well formed while
// everything after the second dot fails to decode as a signature.
func corruptSignatureSegment(tokenStr string) bool {
	parts := strings.SplitN(tokenStr, ".", 3)
	if len(parts) != 3 {
		return false
	}
	for _, segment := range parts[:2] {
		raw, err := strictSegment.DecodeString(segment)
		if err != nil || !json.Valid(raw) {
			return false
		}
	}
	_, err := strictSegment.DecodeString(parts[2])
	return err != nil
}
