package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/pbkdf2"

	"github.com/spec-kit/helpdesk/internal/config"
)

const (
	keyBytes   = 32
	nonceBytes = 12
)

// ErrDecryption is the only error surfaced for corrupt ciphertext or IV;
// the underlying cause is never exposed to callers.
var ErrDecryption = errors.New("decryption error")

// Vault encrypts and decrypts secure-key values with AES-256-GCM. The key
// is derived from the server secret with PBKDF2 on every call; at this
// system's request volume that costs less than caching complexity buys.
type Vault struct {
	cfg config.VaultConfig
}

// New builds a Vault from configuration.
func New(cfg config.VaultConfig) *Vault {
	return &Vault{cfg: cfg}
}

// Encrypt seals the plaintext under a fresh random 96-bit IV and returns
// base64 ciphertext and IV.
func (v *Vault) Encrypt(plaintext string) (ciphertext, iv string, err error) {
	gcm, err := v.cipher()
	if err != nil {
		return "", "", err
	}

	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return "", "", err
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), base64.StdEncoding.EncodeToString(nonce), nil
}

// Decrypt opens stored ciphertext with its IV. Any corruption surfaces as
// ErrDecryption.
func (v *Vault) Decrypt(ciphertext, iv string) (string, error) {
	gcm, err := v.cipher()
	if err != nil {
		return "", err
	}

	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecryption
	}
	nonce, err := base64.StdEncoding.DecodeString(iv)
	if err != nil || len(nonce) != nonceBytes {
		return "", ErrDecryption
	}

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryption
	}
	return string(plaintext), nil
}

func (v *Vault) cipher() (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(v.cfg.Secret), []byte(v.cfg.Salt), v.cfg.Iterations, keyBytes, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
