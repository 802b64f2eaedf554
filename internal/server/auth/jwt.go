// Package auth is the token service: it issues signed bearer tokens that
// carry a subject claim and an expiry, and verifies them.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/questkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrUnsupportedAlgorithm is returned for signing methods that are not HMAC based.
var ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

// Issuer signs and verifies tokens with a shared secret.
type Issuer struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

// NewIssuer returns an Issuer for one of HS256, HS384 or HS512.
// ttl is the validity used by Issue.
func NewIssuer(secret string, algorithm string, ttl time.Duration) (*Issuer, error) {
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	return &Issuer{secret: []byte(secret), method: method, ttl: ttl}, nil
}

// Issue returns a token for subject valid for the issuer's default ttl.
func (i *Issuer) Issue(subject string) (string, error) {
	return i.IssueWithTTL(subject, i.ttl)
}

// IssueWithTTL returns a token for subject valid for ttl.
// Every token gets a random ID, so two tokens for one subject never collide.
func (i *Issuer) IssueWithTTL(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(i.method, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Verify checks signature, algorithm and expiry and returns the subject claim.
// Any failure is reported as common.ErrInvalidToken.
func (i *Issuer) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{i.method.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
