package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ErrInvalidToken is returned for any malformed, tampered, or expired
// session token. Callers treat it as "anonymous", never as a failure.
var ErrInvalidToken = errors.New("invalid session token")

// Claims is the payload carried inside a signed session token. Role and
// tenant are cached for display only; the middleware re-resolves the live
// user on every request.
type Claims struct {
	UserID    string      `json:"user_id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	TenantID  *string     `json:"tenant_id,omitempty"`
	IssuedAt  int64       `json:"iat"`
	ExpiresAt int64       `json:"exp"`
}

// TokenCodec signs and verifies stateless session tokens of the form
// base64url(JSON(claims)) + "." + hex(HMAC-SHA256(payload, secret)).
type TokenCodec struct {
	secret []byte
	maxAge time.Duration
}

// NewTokenCodec builds a codec for the given server secret.
func NewTokenCodec(secret string, maxAge time.Duration) *TokenCodec {
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	return &TokenCodec{secret: []byte(secret), maxAge: maxAge}
}

// MaxAge returns the configured token lifetime.
func (tc *TokenCodec) MaxAge() time.Duration {
	return tc.maxAge
}

// Encode signs claims for the user into a session token.
func (tc *TokenCodec) Encode(user *domain.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		TenantID:  user.TenantID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(tc.maxAge).Unix(),
	}
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + tc.sign(payload), nil
}

// Decode verifies the signature and expiry and returns the claims.
// Signature comparison is constant-time.
func (tc *TokenCodec) Decode(token string) (*Claims, error) {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok || payload == "" || sig == "" {
		return nil, ErrInvalidToken
	}
	if !hmac.Equal([]byte(tc.sign(payload)), []byte(sig)) {
		return nil, ErrInvalidToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrInvalidToken
	}
	var claims Claims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || time.Now().Unix() >= claims.ExpiresAt {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func (tc *TokenCodec) sign(payload string) string {
	mac := hmac.New(sha256.New, tc.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
