package otp

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/estore-auth/internal/config"
	"github.com/estore-auth/internal/domain"
	"github.com/estore-auth/internal/infrastructure/smtp"
	"github.com/estore-auth/internal/pkg/token"
	"github.com/sirupsen/logrus"
)

// Service issues and checks one-time codes. State lives entirely in the
// key-value store as TTL'd keys; reads and writes are not transactional.
type Service interface {
	Send(ctx context.Context, name, email, template string) error
	CheckRestrictions(ctx context.Context, email string) error
	TrackRequests(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) error
	Delete(ctx context.Context, email string) error
	GrantPasswordReset(ctx context.Context, email string) error
	PasswordResetGranted(ctx context.Context, email string) (bool, error)
	ClearPasswordReset(ctx context.Context, email string) error
}

type kvStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type templateMailer interface {
	SendTemplate(to, name string, data smtp.TemplateData) error
}

type service struct {
	store  kvStore
	mailer templateMailer
	cfg    config.OTPConfig
	log    logrus.FieldLogger
	newOTP func() (string, error)
}

func NewService(store kvStore, mailer templateMailer, cfg config.OTPConfig, log logrus.FieldLogger) Service {
	return &service{
		store:  store,
		mailer: mailer,
		cfg:    cfg,
		log:    log,
		newOTP: token.NewOTP,
	}
}

func otpKey(email string) string          { return "otp:" + email }
func cooldownKey(email string) string     { return "otp_cooldown:" + email }
func requestCountKey(email string) string { return "otp_request_count:" + email }
func spamLockKey(email string) string     { return "otp_spam_lock:" + email }
func attemptsKey(email string) string     { return "otp_attempts:" + email }
func lockKey(email string) string         { return "otp_lock:" + email }
func resetKey(email string) string        { return "password_reset:" + email }

// Send stores a fresh code with its cooldown and emails it. Delivery failures
// are logged, not returned: the code is already stored and resend remains possible.
func (s *service) Send(ctx context.Context, name, email, template string) error {
	code, err := s.newOTP()
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, otpKey(email), code, s.cfg.TTL); err != nil {
		return err
	}
	if err := s.store.Set(ctx, cooldownKey(email), "true", s.cfg.Cooldown); err != nil {
		return err
	}
	data := smtp.TemplateData{Name: name, OTP: code, ExpiresIn: humanize(s.cfg.TTL)}
	if err := s.mailer.SendTemplate(email, template, data); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"email":    email,
			"template": template,
		}).Error("failed to send otp email")
	}
	return nil
}

// CheckRestrictions fails if the email is locked, spam-locked or cooling down,
// checked in that order.
func (s *service) CheckRestrictions(ctx context.Context, email string) error {
	locked, err := s.store.Exists(ctx, lockKey(email))
	if err != nil {
		return err
	}
	if locked {
		return domain.Forbidden(fmt.Sprintf("Account locked due to multiple failed attempts! Try again after %s", humanize(s.cfg.AccountLock)))
	}
	spam, err := s.store.Exists(ctx, spamLockKey(email))
	if err != nil {
		return err
	}
	if spam {
		return s.spamLockedErr()
	}
	cooling, err := s.store.Exists(ctx, cooldownKey(email))
	if err != nil {
		return err
	}
	if cooling {
		return domain.RateLimit(fmt.Sprintf("Please wait %s before requesting a new OTP!", humanize(s.cfg.Cooldown)))
	}
	return nil
}

// TrackRequests counts OTP requests in the request window. Once the count
// passes MaxRequests the email is spam-locked.
func (s *service) TrackRequests(ctx context.Context, email string) error {
	n, err := s.store.Incr(ctx, requestCountKey(email), s.cfg.RequestWindow)
	if err != nil {
		return err
	}
	if n > int64(s.cfg.MaxRequests) {
		if err := s.store.Set(ctx, spamLockKey(email), "locked", s.cfg.SpamLock); err != nil {
			return err
		}
		s.log.WithField("email", email).Warn("otp spam lock applied")
		return s.spamLockedErr()
	}
	return nil
}

func (s *service) spamLockedErr() error {
	return domain.RateLimit(fmt.Sprintf("Too many OTP requests! Please wait %s before requesting again.", humanize(s.cfg.SpamLock)))
}

// Verify consumes the stored code on a match. Each mismatch counts as a
// failed attempt; reaching MaxAttempts locks the email.
func (s *service) Verify(ctx context.Context, email, code string) error {
	stored, ok, err := s.store.Get(ctx, otpKey(email))
	if err != nil {
		return err
	}
	if !ok {
		return domain.BadRequest("Invalid or expired OTP!")
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) == 1 {
		return s.store.Del(ctx, otpKey(email), attemptsKey(email))
	}

	failed, err := s.store.Incr(ctx, attemptsKey(email), s.cfg.TTL)
	if err != nil {
		return err
	}
	if failed >= int64(s.cfg.MaxAttempts) {
		if err := s.store.Set(ctx, lockKey(email), "locked", s.cfg.AccountLock); err != nil {
			return err
		}
		if err := s.store.Del(ctx, otpKey(email), attemptsKey(email)); err != nil {
			return err
		}
		s.log.WithField("email", email).Warn("otp account lock applied")
		return domain.Forbidden(fmt.Sprintf("Too many failed attempts. Your account is locked for %s!", humanize(s.cfg.AccountLock)))
	}
	return domain.BadRequest(fmt.Sprintf("Incorrect OTP. %d attempts left.", int64(s.cfg.MaxAttempts)-failed))
}

// Delete invalidates the current code. Cooldown and counters are untouched.
func (s *service) Delete(ctx context.Context, email string) error {
	return s.store.Del(ctx, otpKey(email))
}

func (s *service) GrantPasswordReset(ctx context.Context, email string) error {
	return s.store.Set(ctx, resetKey(email), "granted", s.cfg.PasswordResetTTL)
}

func (s *service) PasswordResetGranted(ctx context.Context, email string) (bool, error) {
	return s.store.Exists(ctx, resetKey(email))
}

func (s *service) ClearPasswordReset(ctx context.Context, email string) error {
	return s.store.Del(ctx, resetKey(email))
}
