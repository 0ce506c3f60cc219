package otp

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk/internal/config"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func testService(t *testing.T) (*Service, *time.Time) {
	t.Helper()
	svc := NewService(NewMemoryStore(), config.OTPConfig{
		Digits:          6,
		TTLSeconds:      900,
		CooldownSeconds: 60,
		MaxRequests:     3,
		MaxAttempts:     3,
	})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, &now
}

func TestCreateIssuesSixDigitCode(t *testing.T) {
	svc, _ := testService(t)

	record, err := svc.Create(context.Background(), "a@acme.example", TypeRegistration)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(record.Code) != 6 {
		t.Errorf("code length = %d, want 6", len(record.Code))
	}
	for _, r := range record.Code {
		if r < '0' || r > '9' {
			t.Errorf("code %q contains non-digit", record.Code)
		}
	}
	if record.RequestCount != 1 {
		t.Errorf("RequestCount = %d, want 1", record.RequestCount)
	}
}

func TestCreateCooldown(t *testing.T) {
	svc, now := testService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "a@acme.example", TypeRegistration); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	*now = now.Add(30 * time.Second)
	_, err := svc.Create(ctx, "a@acme.example", TypeRegistration)
	var domainErr *apperrors.DomainError
	if !asDomainError(err, &domainErr) || domainErr.Code != "OTP_COOLDOWN" {
		t.Fatalf("err = %v, want OTP_COOLDOWN", err)
	}

	*now = now.Add(31 * time.Second)
	if _, err := svc.Create(ctx, "a@acme.example", TypeRegistration); err != nil {
		t.Fatalf("Create after cooldown: %v", err)
	}
}

func TestCreateRequestLimit(t *testing.T) {
	svc, now := testService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, "a@acme.example", TypeRegistration); err != nil {
			t.Fatalf("Create %d: %v", i+1, err)
		}
		*now = now.Add(61 * time.Second)
	}

	_, err := svc.Create(ctx, "a@acme.example", TypeRegistration)
	var domainErr *apperrors.DomainError
	if !asDomainError(err, &domainErr) || domainErr.Code != "OTP_LIMIT_REACHED" {
		t.Fatalf("err = %v, want OTP_LIMIT_REACHED", err)
	}
}

func TestCreateSupersedesCode(t *testing.T) {
	svc, now := testService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "a@acme.example", TypeRegistration)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	*now = now.Add(61 * time.Second)
	second, err := svc.Create(ctx, "a@acme.example", TypeRegistration)
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if second.RequestCount != 2 {
		t.Errorf("RequestCount = %d, want 2", second.RequestCount)
	}

	if err := svc.Validate(ctx, "a@acme.example", TypeRegistration, first.Code); err == nil && first.Code != second.Code {
		t.Error("superseded code still validates")
	}
}

func TestValidateConsumesOnMatch(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	record, err := svc.Create(ctx, "a@acme.example", TypeRegistration)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Validate(ctx, "a@acme.example", TypeRegistration, record.Code); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := svc.Validate(ctx, "a@acme.example", TypeRegistration, record.Code); err == nil {
		t.Error("code validated twice")
	}
}

func TestValidateScopedByType(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	record, err := svc.Create(ctx, "a@acme.example", TypeRegistration)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Validate(ctx, "a@acme.example", TypePasswordReset, record.Code); err == nil {
		t.Error("registration code accepted for password reset")
	}
}

func TestValidateAttemptLimit(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	record, err := svc.Create(ctx, "a@acme.example", TypeRegistration)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	wrong := "000000"
	if wrong == record.Code {
		wrong = "000001"
	}
	for i := 0; i < 3; i++ {
		if err := svc.Validate(ctx, "a@acme.example", TypeRegistration, wrong); err == nil {
			t.Fatalf("wrong code accepted on attempt %d", i+1)
		}
	}

	// record destroyed after the third miss; even the right code fails now
	if err := svc.Validate(ctx, "a@acme.example", TypeRegistration, record.Code); err == nil {
		t.Error("correct code accepted after attempt limit")
	}
}

func TestValidateExpired(t *testing.T) {
	svc, now := testService(t)
	ctx := context.Background()

	record, err := svc.Create(ctx, "a@acme.example", TypeRegistration)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	*now = now.Add(901 * time.Second)
	if err := svc.Validate(ctx, "a@acme.example", TypeRegistration, record.Code); err == nil {
		t.Error("expired code accepted")
	}
}

func asDomainError(err error, target **apperrors.DomainError) bool {
	if err == nil {
		return false
	}
	de, ok := err.(*apperrors.DomainError)
	if !ok {
		return false
	}
	*target = de
	return true
}
