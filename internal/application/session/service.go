package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/estore-auth/internal/domain"
	jwtinfra "github.com/estore-auth/internal/infrastructure/jwt"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	invalidCredentials = "Invalid Credentials"
	invalidToken       = "Invalid token. Please log in again."

	minRevokeTTL = time.Second
)

type Service interface {
	Issue(ctx context.Context, u *domain.User) (*domain.TokenPair, error)
	Login(ctx context.Context, req domain.LoginRequest) (*domain.User, *domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Logout(ctx context.Context, refreshToken string)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type tokenProvider interface {
	SignAccess(userID, role string) (string, *jwtinfra.Claims, error)
	SignRefresh(userID, role string) (string, *jwtinfra.Claims, error)
	VerifyRefresh(tokenStr string) (*jwtinfra.Claims, error)
}

// revocationStore remembers refresh token ids that must no longer be accepted.
type revocationStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

type service struct {
	users   userStore
	tokens  tokenProvider
	revoked revocationStore
	log     logrus.FieldLogger
}

func NewService(users userStore, tokens tokenProvider, revoked revocationStore, log logrus.FieldLogger) Service {
	return &service{users: users, tokens: tokens, revoked: revoked, log: log}
}

func revokedKey(jti string) string { return "revoked_refresh:" + jti }

func (s *service) Issue(_ context.Context, u *domain.User) (*domain.TokenPair, error) {
	access, accessClaims, err := s.tokens.SignAccess(u.UserID, u.Role)
	if err != nil {
		return nil, err
	}
	refresh, refreshClaims, err := s.tokens.SignRefresh(u.UserID, u.Role)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
	}, nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, *domain.TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, nil, domain.Unauthorized(invalidCredentials)
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, domain.Unauthorized(invalidCredentials)
	}
	if err != nil {
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, domain.Unauthorized(invalidCredentials)
	}
	pair, err := s.Issue(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	s.log.WithField("user_id", u.UserID).Info("user logged in")
	return u, pair, nil
}

// Refresh rotates the pair: the presented refresh token is revoked and a new
// pair is issued. Revocation is a single set-if-absent, so a token can be
// exchanged at most once.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, domain.Unauthorized("Refresh token is missing")
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, claims.UserID())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Unauthorized(invalidToken)
	}
	if err != nil {
		return nil, err
	}
	fresh, err := s.revoked.SetNX(ctx, revokedKey(claims.ID), "1", revokeTTL(claims))
	if err != nil {
		return nil, err
	}
	if !fresh {
		s.log.WithField("user_id", claims.UserID()).Warn("revoked refresh token presented")
		return nil, domain.Unauthorized(invalidToken)
	}
	return s.Issue(ctx, u)
}

// Logout revokes the refresh token when it is still valid. Invalid or missing
// tokens are ignored, and a failed revocation is only logged.
func (s *service) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return
	}
	if err := s.revoked.Set(ctx, revokedKey(claims.ID), "1", revokeTTL(claims)); err != nil {
		s.log.WithError(err).WithField("user_id", claims.UserID()).Warn("failed to revoke refresh token on logout")
	}
}

// revokeTTL keeps a revocation entry until the token would have expired.
func revokeTTL(claims *jwtinfra.Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return minRevokeTTL
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl > minRevokeTTL {
		return ttl
	}
	return minRevokeTTL
}
