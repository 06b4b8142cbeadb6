package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/estore-auth/internal/domain"
	"github.com/estore-auth/internal/infrastructure/smtp"
	"github.com/estore-auth/internal/pkg/id"
	"github.com/estore-auth/internal/pkg/validate"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Service implements account registration, email verification and password reset.
type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, *domain.TokenPair, error)
	Verify(ctx context.Context, userID string, req domain.VerifyRequest) error
	ResendOTP(ctx context.Context, userID string) error
	ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) error
	VerifyForgotPasswordOTP(ctx context.Context, req domain.VerifyForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error
}

type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, upd domain.UserUpdate) error
}

type otpService interface {
	Send(ctx context.Context, name, email, template string) error
	CheckRestrictions(ctx context.Context, email string) error
	TrackRequests(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) error
	Delete(ctx context.Context, email string) error
	GrantPasswordReset(ctx context.Context, email string) error
	PasswordResetGranted(ctx context.Context, email string) (bool, error)
	ClearPasswordReset(ctx context.Context, email string) error
}

type tokenIssuer interface {
	Issue(ctx context.Context, u *domain.User) (*domain.TokenPair, error)
}

// ServiceDeps groups the collaborators of the auth service.
type ServiceDeps struct {
	Users      userStore
	OTP        otpService
	Tokens     tokenIssuer
	BcryptCost int
	Log        logrus.FieldLogger
}

type service struct {
	users      userStore
	otp        otpService
	tokens     tokenIssuer
	bcryptCost int
	log        logrus.FieldLogger
}

func NewService(deps ServiceDeps) Service {
	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &service{
		users:      deps.Users,
		otp:        deps.OTP,
		tokens:     deps.Tokens,
		bcryptCost: cost,
		log:        deps.Log,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, *domain.TokenPair, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, nil, err
	}

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, nil, domain.Conflict("User already exists with this email!")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, nil, domain.Conflict("User already exists with this email!")
		}
		return nil, nil, err
	}

	pair, err := s.tokens.Issue(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	if err := s.otp.Send(ctx, u.Name, u.Email, smtp.TemplateActivation); err != nil {
		return nil, nil, err
	}
	s.log.WithField("user_id", u.UserID).Info("user registered")
	return u, pair, nil
}

// Verify checks the activation code for the authenticated user and marks the
// account verified.
func (s *service) Verify(ctx context.Context, userID string, req domain.VerifyRequest) error {
	req.OTP = strings.TrimSpace(req.OTP)
	if err := validate.Struct(req); err != nil {
		return err
	}
	u, err := s.unverifiedUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.otp.Verify(ctx, u.Email, req.OTP); err != nil {
		return err
	}
	verified := true
	if err := s.users.Update(ctx, u.UserID, domain.UserUpdate{Verified: &verified}); err != nil {
		return err
	}
	s.log.WithField("user_id", u.UserID).Info("user verified")
	return nil
}

// ResendOTP replaces the activation code. Restrictions are checked before the
// old code is dropped so a rejected resend leaves it usable.
func (s *service) ResendOTP(ctx context.Context, userID string) error {
	u, err := s.unverifiedUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.otp.CheckRestrictions(ctx, u.Email); err != nil {
		return err
	}
	if err := s.otp.TrackRequests(ctx, u.Email); err != nil {
		return err
	}
	if err := s.otp.Delete(ctx, u.Email); err != nil {
		return err
	}
	return s.otp.Send(ctx, u.Name, u.Email, smtp.TemplateResendOTP)
}

func (s *service) unverifiedUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.BadRequest("User not found")
	}
	if err != nil {
		return nil, err
	}
	if u.Verified {
		return nil, domain.BadRequest("User is already verified")
	}
	return u, nil
}

func (s *service) ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) error {
	email := normalizeEmail(req.Email)
	if email == "" {
		return domain.BadRequest("Email is required")
	}
	u, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.otp.CheckRestrictions(ctx, email); err != nil {
		return err
	}
	if err := s.otp.TrackRequests(ctx, email); err != nil {
		return err
	}
	return s.otp.Send(ctx, u.Name, email, smtp.TemplateForgotPassword)
}

// VerifyForgotPasswordOTP checks the reset code and grants a short-lived
// permission to set a new password.
func (s *service) VerifyForgotPasswordOTP(ctx context.Context, req domain.VerifyForgotPasswordRequest) error {
	email := normalizeEmail(req.Email)
	code := strings.TrimSpace(req.OTP)
	if email == "" || code == "" {
		return domain.BadRequest("Email and OTP is required")
	}
	if err := s.otp.Verify(ctx, email, code); err != nil {
		return err
	}
	return s.otp.GrantPasswordReset(ctx, email)
}

func (s *service) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return domain.BadRequest("Email and password is required")
	}
	if err := validate.Struct(req); err != nil {
		return err
	}
	u, err := s.userByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	granted, err := s.otp.PasswordResetGranted(ctx, req.Email)
	if err != nil {
		return err
	}
	if !granted {
		return domain.Forbidden("Verify the OTP before resetting your password")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) == nil {
		return domain.BadRequest("New password cannot be same as the old password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	hashStr := string(hash)
	if err := s.users.Update(ctx, u.UserID, domain.UserUpdate{PasswordHash: &hashStr}); err != nil {
		return err
	}
	if err := s.otp.ClearPasswordReset(ctx, req.Email); err != nil {
		s.log.WithError(err).WithField("user_id", u.UserID).Warn("failed to clear password reset grant")
	}
	s.log.WithField("user_id", u.UserID).Info("password reset")
	return nil
}

func (s *service) userByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("User not found!")
	}
	return u, err
}
