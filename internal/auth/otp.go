// internal/auth/otp.go
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"sync"
	"time"

	"bookstore/pkg/apperr"
)

var (
	ErrNoOTP        = apperr.New(apperr.ErrInvalid, "No OTP found for this email.")
	ErrOTPExpired   = apperr.New(apperr.ErrInvalid, "OTP expired.")
	ErrOTPMismatch  = apperr.New(apperr.ErrInvalid, "Invalid OTP.")
	ErrOTPStoreFull = apperr.New(apperr.ErrRateLimited, "Too many pending OTP requests, try again later.")
)

const sweepInterval = time.Minute

type otpEntry struct {
	code    string
	expires time.Time
}

// OTPStore holds one-time reset codes and the reset grants earned by
// verifying them. Codes are single use. Keys are normalized emails.
type OTPStore struct {
	mu       sync.Mutex
	codes    map[string]otpEntry
	grants   map[string]time.Time
	ttl      time.Duration
	grantTTL time.Duration
	capacity int
	now      func() time.Time
}

// NewOTPStore creates a store whose codes live for ttl and whose reset grants
// live for grantTTL. At most capacity codes are pending at once.
func NewOTPStore(ttl, grantTTL time.Duration, capacity int) *OTPStore {
	return &OTPStore{
		codes:    make(map[string]otpEntry),
		grants:   make(map[string]time.Time),
		ttl:      ttl,
		grantTTL: grantTTL,
		capacity: capacity,
		now:      time.Now,
	}
}

// Issue creates a fresh 5-digit code for email, replacing any pending one.
func (s *OTPStore) Issue(email string) (string, error) {
	code, err := newCode()
	if err != nil {
		return "", err
	}
	key := normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, pending := s.codes[key]; !pending && len(s.codes) >= s.capacity {
		s.sweepLocked()
		if len(s.codes) >= s.capacity {
			return "", ErrOTPStoreFull
		}
	}
	s.codes[key] = otpEntry{code: code, expires: s.now().Add(s.ttl)}
	return code, nil
}

// Verify consumes the code for email. On a match the email is granted one
// password reset. A wrong code leaves the pending code in place; an expired
// one is removed.
func (s *OTPStore) Verify(email, code string) error {
	key := normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.codes[key]
	if !ok {
		return ErrNoOTP
	}
	now := s.now()
	if now.After(entry.expires) {
		delete(s.codes, key)
		return ErrOTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(entry.code), []byte(code)) != 1 {
		return ErrOTPMismatch
	}

	delete(s.codes, key)
	s.grants[key] = now.Add(s.grantTTL)
	return nil
}

// HasGrant reports whether email holds an unexpired reset grant.
func (s *OTPStore) HasGrant(email string) bool {
	key := normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	expires, ok := s.grants[key]
	if !ok {
		return false
	}
	if s.now().After(expires) {
		delete(s.grants, key)
		return false
	}
	return true
}

// ConsumeGrant removes the reset grant for email.
func (s *OTPStore) ConsumeGrant(email string) {
	s.mu.Lock()
	delete(s.grants, normalizeEmail(email))
	s.mu.Unlock()
}

// Pending is the number of codes awaiting verification.
func (s *OTPStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

// Run removes expired codes and grants every minute until ctx is done.
func (s *OTPStore) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep removes expired codes and grants.
func (s *OTPStore) Sweep() {
	s.mu.Lock()
	s.sweepLocked()
	s.mu.Unlock()
}

func (s *OTPStore) sweepLocked() {
	now := s.now()
	for k, e := range s.codes {
		if now.After(e.expires) {
			delete(s.codes, k)
		}
	}
	for k, exp := range s.grants {
		if now.After(exp) {
			delete(s.grants, k)
		}
	}
}

var codeRange = big.NewInt(90000)

// newCode returns a uniformly random code in 10000..99999.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeRange)
	if err != nil {
		return "", err
	}
	return n.Add(n, big.NewInt(10000)).String(), nil
}
