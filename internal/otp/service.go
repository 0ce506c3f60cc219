package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/spec-kit/helpdesk/internal/config"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// Type distinguishes the flows a code can verify.
type Type string

const (
	TypeRegistration  Type = "registration"
	TypePasswordReset Type = "password_reset"
)

// Service issues, rate-limits, and validates short numeric codes. One live
// record exists per (email, type); superseded records are deleted before a
// new one is written.
type Service struct {
	store Store
	cfg   config.OTPConfig
	now   func() time.Time
}

// NewService builds the service.
func NewService(store Store, cfg config.OTPConfig) *Service {
	return &Service{store: store, cfg: cfg, now: time.Now}
}

// Create issues a new code for (email, type). Re-requests inside the
// cooldown window fail without touching the stored code, and the number of
// issuances per live window is capped.
func (s *Service) Create(ctx context.Context, email string, otpType Type) (*Record, error) {
	key := recordKey(email, otpType)
	now := s.now()

	existing, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	requestCount := 1
	if existing != nil && now.Before(existing.ExpiresAt) {
		if wait := existing.LastRequestAt.Add(s.cfg.Cooldown()).Sub(now); wait > 0 {
			seconds := int(wait.Seconds()) + 1
			return nil, apperrors.NewDomainError("OTP_COOLDOWN",
				fmt.Sprintf("wait %d seconds before requesting a new code", seconds),
				http.StatusTooManyRequests, map[string]any{"retry_after_seconds": seconds})
		}
		if existing.RequestCount >= s.cfg.MaxRequests {
			return nil, apperrors.NewDomainError("OTP_LIMIT_REACHED",
				"code request limit reached", http.StatusTooManyRequests, nil)
		}
		requestCount = existing.RequestCount + 1
		if err := s.store.Delete(ctx, key); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	code, err := generateCode(s.cfg.Digits)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	record := &Record{
		Code:          code,
		Email:         email,
		Type:          otpType,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.cfg.TTL()),
		RequestCount:  requestCount,
		LastRequestAt: now,
	}
	if err := s.store.Set(ctx, key, record, s.cfg.TTL()); err != nil {
		return nil, apperrors.MapError(err)
	}
	return record, nil
}

// Validate checks a submitted code. A match consumes the record; repeated
// mismatches destroy it so a brute-forced 4th attempt cannot succeed.
func (s *Service) Validate(ctx context.Context, email string, otpType Type, code string) error {
	key := recordKey(email, otpType)
	now := s.now()

	record, err := s.store.Get(ctx, key)
	if err != nil {
		return apperrors.MapError(err)
	}
	if record == nil || now.After(record.ExpiresAt) {
		if record != nil {
			_ = s.store.Delete(ctx, key)
		}
		return apperrors.NewValidationError("no active code; request a new one", nil)
	}

	if record.Code != code {
		record.Attempts++
		if record.Attempts >= s.cfg.MaxAttempts {
			if err := s.store.Delete(ctx, key); err != nil {
				return apperrors.MapError(err)
			}
			return apperrors.NewValidationError("too many incorrect attempts; request a new code", nil)
		}
		remaining := record.ExpiresAt.Sub(now)
		if err := s.store.Set(ctx, key, record, remaining); err != nil {
			return apperrors.MapError(err)
		}
		return apperrors.NewValidationError("invalid code", nil)
	}

	if err := s.store.Delete(ctx, key); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func recordKey(email string, otpType Type) string {
	return fmt.Sprintf("otp:%s:%s", otpType, email)
}

func generateCode(digits int) (string, error) {
	if digits <= 0 {
		digits = 6
	}
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
