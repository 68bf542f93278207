// Package seal encrypts persisted credential blobs at rest. The key is
// derived from the service secret, so token files are unreadable without
// the deployment's configuration.
package seal

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// keyInfo domain-separates the sealing key from any other use of the
// service secret.
const keyInfo = "garminbridge/token-seal/v1"

// Sealer seals and opens small blobs with ChaCha20-Poly1305.
type Sealer struct {
	key []byte
}

// New derives a sealing key from the service secret.
func New(secret string) (*Sealer, error) {
	h := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("deriving sealing key: %w", err)
	}
	return &Sealer{key: key}, nil
}

// Seal encrypts plain. The nonce is prepended to the ciphertext.
func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(s.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plain, nil), nil
}

// Open decrypts a blob produced by Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(s.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("sealed blob shorter than nonce")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("opening sealed blob: %w", err)
	}
	return plain, nil
}
