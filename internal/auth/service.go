// internal/auth/service.go
package auth

import "context"

// Service defines the interface for admin authentication.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (token string, err error)
	Login(ctx context.Context, req LoginRequest) (token string, profile *Profile, err error)
	Profile(ctx context.Context, adminID int64) (*Profile, error)
	AdminName(ctx context.Context, adminID int64) (string, error)
	// Forgot emails a one-time code to a registered admin.
	Forgot(ctx context.Context, req ForgotRequest) error
	// VerifyOTP consumes the code and grants one password reset.
	VerifyOTP(ctx context.Context, req VerifyRequest) error
	Reset(ctx context.Context, req ResetRequest) error
}

// Store is the admin account persistence.
type Store interface {
	Insert(ctx context.Context, a Admin) error
	Get(ctx context.Context, id int64) (*Admin, error)
	GetByEmail(ctx context.Context, email string) (*Admin, error)
	UpdatePassword(ctx context.Context, id int64, hash, salt string) error
}
