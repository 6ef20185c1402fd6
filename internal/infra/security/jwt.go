package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"staybook/internal/app/policies"
)

var ErrInvalidToken = errors.New("security: invalid token")

type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// JWTAuthenticator verifies HS256 bearer tokens issued by the identity provider.
type JWTAuthenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewJWTAuthenticator(secret, issuer string) (*JWTAuthenticator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("security: jwt secret is required")
	}
	return &JWTAuthenticator{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Verify parses the token and returns the principal it names.
func (a *JWTAuthenticator) Verify(raw string) (policies.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return policies.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	subject, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(subject) == "" {
		return policies.Principal{}, fmt.Errorf("%w: subject missing", ErrInvalidToken)
	}
	return policies.Principal{ID: subject, Roles: claims.Roles}, nil
}

// Issue signs a token for the given principal. It backs local tooling and tests.
func (a *JWTAuthenticator) Issue(p policies.Principal, ttl time.Duration) (string, error) {
	now := a.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: p.Roles,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
