// internal/auth/domain.go
package auth

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"

	"bookstore/pkg/apperr"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 20
)

var (
	ErrAdminNotFound      = apperr.New(apperr.ErrNotFound, "Admin not found.")
	ErrEmailNotFound      = apperr.New(apperr.ErrNotFound, "Email not found.")
	ErrAdminExists        = apperr.New(apperr.ErrConflict, "The account already exists.")
	ErrInvalidCredentials = apperr.New(apperr.ErrUnauthorized, "Invalid admin ID or password")
	ErrEmailMismatch      = apperr.New(apperr.ErrInvalid, "Incorrect email for the provided admin ID.")
	ErrSamePassword       = apperr.New(apperr.ErrInvalid, "New password cannot be the same as the old password.")
	ErrResetNotVerified   = apperr.New(apperr.ErrForbidden, "OTP verification is required before resetting the password.")
	ErrTooManyRequests    = apperr.New(apperr.ErrRateLimited, "Too many requests, try again later.")
)

// Admin is a back-office account.
type Admin struct {
	ID           int64  `db:"admin_id"`
	Name         string `db:"admin_name"`
	PasswordHash string `db:"password_hash"`
	PasswordSalt string `db:"password_salt"`
	Gender       string `db:"gender"`
	Email        string `db:"email"`
	Contact      string `db:"contact_num"`
	Position     string `db:"position"`
}

// Profile is the public view of an admin.
type Profile struct {
	ID       int64  `json:"admin_ID"`
	Name     string `json:"admin_name"`
	Position string `json:"position"`
	Gender   string `json:"gender"`
	Contact  string `json:"contact_num"`
	Email    string `json:"email"`
}

func (a *Admin) Profile() *Profile {
	return &Profile{
		ID:       a.ID,
		Name:     a.Name,
		Position: a.Position,
		Gender:   a.Gender,
		Contact:  a.Contact,
		Email:    a.Email,
	}
}

// ID is an admin id. It decodes from a JSON number or a numeric string,
// since form inputs send strings.
type ID int64

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
		if len(b) == 0 {
			*id = 0
			return nil
		}
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return apperr.Invalidf("adminId must be a number")
	}
	*id = ID(n)
	return nil
}

// normalizeEmail is the form emails are compared and keyed in.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPasswordLength(p string) error {
	if n := utf8.RuneCountInString(p); n < minPasswordLen || n > maxPasswordLen {
		return apperr.Invalidf("Password must be %d-%d characters long.", minPasswordLen, maxPasswordLen)
	}
	return nil
}

type RegisterRequest struct {
	AdminID  ID     `json:"adminId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Contact  string `json:"contact"`
	Position string `json:"position"`
	Gender   string `json:"gender"`
}

func (r RegisterRequest) Validate() error {
	if r.AdminID <= 0 {
		return apperr.Invalidf("All fields are required.")
	}
	for _, v := range []string{r.Name, r.Email, r.Password, r.Contact, r.Position, r.Gender} {
		if strings.TrimSpace(v) == "" {
			return apperr.Invalidf("All fields are required.")
		}
	}
	if !strings.Contains(r.Email, "@") {
		return apperr.Invalidf("Invalid email address.")
	}
	return checkPasswordLength(r.Password)
}

type LoginRequest struct {
	AdminID  ID     `json:"adminId"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	if r.AdminID <= 0 || r.Password == "" {
		return apperr.Invalidf("adminId and password are required.")
	}
	return nil
}

type ForgotRequest struct {
	Email   string `json:"email"`
	AdminID ID     `json:"adminId,omitempty"`
}

func (r ForgotRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return apperr.Invalidf("Email is required.")
	}
	return nil
}

type VerifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (r VerifyRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || strings.TrimSpace(r.OTP) == "" {
		return apperr.Invalidf("Email and OTP are required.")
	}
	return nil
}

type ResetRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

func (r ResetRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || r.NewPassword == "" {
		return apperr.Invalidf("Email and new password are required.")
	}
	return checkPasswordLength(r.NewPassword)
}
