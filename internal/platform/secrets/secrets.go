package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/sha3"
)

// Decryptor exposes provider credentials without the rest of the service
// ever holding key material. Implementations must not log plaintext.
type Decryptor interface {
	Decrypt(ciphertext string) (string, error)
}

var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// AESGCMDecryptor decrypts base64(nonce||ciphertext) blobs with a key
// derived from the configured master key via SHA3-256.
type AESGCMDecryptor struct {
	aead cipher.AEAD
}

func NewAESGCMDecryptor(masterKey string) (*AESGCMDecryptor, error) {
	if masterKey == "" {
		return nil, errors.New("secrets master key is empty")
	}
	key := sha3.Sum256([]byte(masterKey))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to init GCM: %w", err)
	}
	return &AESGCMDecryptor{aead: aead}, nil
}

func (d *AESGCMDecryptor) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	if len(raw) < d.aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}
	nonce, sealed := raw[:d.aead.NonceSize()], raw[d.aead.NonceSize():]
	plain, err := d.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrInvalidCiphertext)
	}
	return string(plain), nil
}

// Encrypt is the inverse of Decrypt. Used by provisioning tooling and tests;
// the service itself only decrypts.
func (d *AESGCMDecryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, d.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := d.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}
