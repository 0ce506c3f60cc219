package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func testUser() *domain.User {
	tenantID := "tenant-1"
	return &domain.User{
		ID:       "user-1",
		Email:    "alice@acme.example",
		Role:     domain.RoleUser,
		TenantID: &tenantID,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	codec := NewTokenCodec("secret", time.Hour)

	token, err := codec.Encode(testUser())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	claims, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", claims.UserID)
	}
	if claims.Email != "alice@acme.example" {
		t.Errorf("Email = %q", claims.Email)
	}
	if claims.TenantID == nil || *claims.TenantID != "tenant-1" {
		t.Errorf("TenantID = %v, want tenant-1", claims.TenantID)
	}
	if claims.ExpiresAt <= claims.IssuedAt {
		t.Error("expiry not after issuance")
	}
}

func TestDecodeRejectsTampering(t *testing.T) {
	codec := NewTokenCodec("secret", time.Hour)
	token, err := codec.Encode(testUser())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	payload, sig, _ := strings.Cut(token, ".")

	cases := map[string]string{
		"empty":             "",
		"no separator":      payload + sig,
		"missing signature": payload + ".",
		"missing payload":   "." + sig,
		"flipped signature": payload + "." + sig[1:] + string(sig[0]),
		"swapped payload":   "eyJmb28iOiJiYXIifQ" + "." + sig,
		"garbage":           "not a token at all",
	}
	for name, tampered := range cases {
		if _, err := codec.Decode(tampered); err == nil {
			t.Errorf("%s: tampered token accepted", name)
		}
	}
}

func TestDecodeRejectsForeignSecret(t *testing.T) {
	token, err := NewTokenCodec("secret-a", time.Hour).Encode(testUser())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := NewTokenCodec("secret-b", time.Hour).Decode(token); err == nil {
		t.Error("token signed under a different secret accepted")
	}
}

func TestDecodeRejectsExpired(t *testing.T) {
	codec := NewTokenCodec("secret", time.Nanosecond)
	token, err := codec.Encode(testUser())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	time.Sleep(time.Second + time.Millisecond)
	if _, err := codec.Decode(token); err == nil {
		t.Error("expired token accepted")
	}
}
