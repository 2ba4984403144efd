package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/menusready/internal/clock"
	"github.com/smallbiznis/menusready/internal/operator/domain"
)

const (
	issuerName      = "menusready"
	audienceName    = "menusready-admin"
	defaultTokenTTL = 8 * time.Hour
)

type operatorClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func newTokenIssuer(secret string, ttl time.Duration, clk clock.Clock) *tokenIssuer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &tokenIssuer{
		secret: []byte(strings.TrimSpace(secret)),
		ttl:    ttl,
		clock:  clk,
	}
}

func (i *tokenIssuer) issue(op *domain.Operator) (*domain.Token, error) {
	if len(i.secret) == 0 {
		return nil, domain.ErrTokenSecretMissing
	}
	now := i.clock.Now().UTC()
	expiresAt := now.Add(i.ttl)

	claims := operatorClaims{
		Email: op.Email,
		Role:  op.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   op.ID.String(),
			Issuer:    issuerName,
			Audience:  []string{audienceName},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("sign operator token: %w", err)
	}
	return &domain.Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(i.ttl.Seconds()),
		ExpiresAt:   expiresAt,
	}, nil
}

func (i *tokenIssuer) parse(raw string) (*operatorClaims, error) {
	if len(i.secret) == 0 {
		return nil, domain.ErrTokenSecretMissing
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.ErrInvalidToken
	}

	claims := &operatorClaims{}
	_, err := jwt.ParseWithClaims(
		raw,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing algorithm: %s", token.Method.Alg())
			}
			return i.secret, nil
		},
		jwt.WithAudience(audienceName),
		jwt.WithIssuer(issuerName),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
