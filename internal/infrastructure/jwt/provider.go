package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/estore-auth/internal/config"
	"github.com/estore-auth/internal/pkg/id"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken wraps every verification failure. The underlying jwt error
// (jwt.ErrTokenExpired, jwt.ErrTokenNotValidYet, ...) stays reachable with errors.Is.
var ErrInvalidToken = errors.New("invalid token")

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Claims holds the JWT payload fields.
type Claims struct {
	Role string    `json:"role"`
	Type TokenType `json:"typ"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() string { return c.Subject }

// Provider signs and verifies HS256 JWTs. Access and refresh tokens use
// separate secrets so one can never be replayed as the other.
type Provider struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewProvider(cfg config.JWTConfig) *Provider {
	return &Provider{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
	}
}

func (p *Provider) AccessTTL() time.Duration  { return p.accessTTL }
func (p *Provider) RefreshTTL() time.Duration { return p.refreshTTL }

// SignAccess issues an access token for the user.
func (p *Provider) SignAccess(userID, role string) (string, *Claims, error) {
	return p.sign(AccessToken, userID, role)
}

// SignRefresh issues a refresh token for the user.
func (p *Provider) SignRefresh(userID, role string) (string, *Claims, error) {
	return p.sign(RefreshToken, userID, role)
}

func (p *Provider) VerifyAccess(tokenStr string) (*Claims, error) {
	return p.verify(AccessToken, tokenStr)
}

func (p *Provider) VerifyRefresh(tokenStr string) (*Claims, error) {
	return p.verify(RefreshToken, tokenStr)
}

func (p *Provider) secret(typ TokenType) []byte {
	if typ == RefreshToken {
		return p.refreshSecret
	}
	return p.accessSecret
}

func (p *Provider) ttl(typ TokenType) time.Duration {
	if typ == RefreshToken {
		return p.refreshTTL
	}
	return p.accessTTL
}

func (p *Provider) sign(typ TokenType, userID, role string) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		Role: role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        id.NewTokenID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl(typ))),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret(typ))
	if err != nil {
		return "", nil, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, claims, nil
}

func (p *Provider) verify(typ TokenType, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return p.secret(typ), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}
	if claims.Type != typ || claims.Subject == "" {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, typ)
	}
	return claims, nil
}
