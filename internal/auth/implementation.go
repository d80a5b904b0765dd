// internal/auth/implementation.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// service implements the Service interface.
type service struct {
	store       Store
	tokens      *Tokens
	otps        *OTPStore
	mailer      Mailer
	logger      *slog.Logger
	rateLimiter *rate.Limiter
}

// NewService creates a new auth service instance. Login and the reset flow
// share one token bucket.
func NewService(store Store, tokens *Tokens, otps *OTPStore, mailer Mailer, logger *slog.Logger) Service {
	return &service{
		store:       store,
		tokens:      tokens,
		otps:        otps,
		mailer:      mailer,
		logger:      logger.With("component", "auth"),
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 20),
	}
}

func (s *service) allow() error {
	if !s.rateLimiter.Allow() {
		return ErrTooManyRequests
	}
	return nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	hash, salt, err := hashPassword(req.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	admin := Admin{
		ID:           int64(req.AdminID),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		PasswordSalt: salt,
		Gender:       strings.TrimSpace(req.Gender),
		Email:        normalizeEmail(req.Email),
		Contact:      strings.TrimSpace(req.Contact),
		Position:     strings.TrimSpace(req.Position),
	}
	if err := s.store.Insert(ctx, admin); err != nil {
		return "", fmt.Errorf("register admin %d: %w", admin.ID, err)
	}

	s.logger.Info("admin registered", "admin_id", admin.ID)
	return s.tokens.Issue(admin.ID)
}

// Login checks credentials. Unknown ids and wrong passwords get the same
// error.
func (s *service) Login(ctx context.Context, req LoginRequest) (string, *Profile, error) {
	if err := s.allow(); err != nil {
		return "", nil, err
	}
	if err := req.Validate(); err != nil {
		return "", nil, err
	}

	admin, err := s.store.Get(ctx, int64(req.AdminID))
	if errors.Is(err, ErrAdminNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	ok, err := verifyPassword(req.Password, admin.PasswordSalt, admin.PasswordHash)
	if err != nil {
		return "", nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.logger.Warn("failed login", "admin_id", admin.ID)
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(admin.ID)
	if err != nil {
		return "", nil, err
	}
	return token, admin.Profile(), nil
}

func (s *service) Profile(ctx context.Context, adminID int64) (*Profile, error) {
	admin, err := s.store.Get(ctx, adminID)
	if err != nil {
		return nil, err
	}
	return admin.Profile(), nil
}

func (s *service) AdminName(ctx context.Context, adminID int64) (string, error) {
	admin, err := s.store.Get(ctx, adminID)
	if err != nil {
		return "", err
	}
	return admin.Name, nil
}

func (s *service) Forgot(ctx context.Context, req ForgotRequest) error {
	if err := s.allow(); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	email := normalizeEmail(req.Email)

	if req.AdminID > 0 {
		admin, err := s.store.Get(ctx, int64(req.AdminID))
		if err != nil {
			return err
		}
		if normalizeEmail(admin.Email) != email {
			return ErrEmailMismatch
		}
	} else if _, err := s.store.GetByEmail(ctx, email); err != nil {
		return err
	}

	code, err := s.otps.Issue(email)
	if err != nil {
		return err
	}
	minutes := int(s.otps.ttl / time.Minute)
	body := fmt.Sprintf("Your OTP is %s. It is valid for %d minutes.", code, minutes)
	if err := s.mailer.Send(ctx, email, "Your OTP Code", body); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}
	s.logger.Info("otp issued", "email", email)
	return nil
}

func (s *service) VerifyOTP(ctx context.Context, req VerifyRequest) error {
	if err := s.allow(); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	return s.otps.Verify(req.Email, strings.TrimSpace(req.OTP))
}

// Reset sets a new password for an email that recently verified an OTP. The
// reset grant is consumed on success.
func (s *service) Reset(ctx context.Context, req ResetRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	email := normalizeEmail(req.Email)
	if !s.otps.HasGrant(email) {
		return ErrResetNotVerified
	}

	admin, err := s.store.GetByEmail(ctx, email)
	if errors.Is(err, ErrEmailNotFound) {
		return ErrAdminNotFound
	}
	if err != nil {
		return err
	}

	same, err := verifyPassword(req.NewPassword, admin.PasswordSalt, admin.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if same {
		return ErrSamePassword
	}

	hash, salt, err := hashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, admin.ID, hash, salt); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	s.otps.ConsumeGrant(email)
	s.logger.Info("password reset", "admin_id", admin.ID)
	return nil
}
