// Package secure wraps frame payloads in authenticated encryption derived
// from a shared secret.
//
// Both ends must be configured with the same secret out of band; no key
// exchange occurs. The symmetric key is derived deterministically from the
// secret with argon2id over a fixed protocol salt, so equal secrets always
// yield equal keys. Each sealed frame carries a freshly generated random
// nonce, and the AEAD construction (XChaCha20-Poly1305) detects tampering
// and wrong-secret decryption.
package secure

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrAuthFailed is returned when a frame cannot be authenticated: either the
// peer holds a different secret or the bytes were tampered with. It is fatal
// to the connection and never retried with the same bytes.
var ErrAuthFailed = errors.New("secure: message authentication failed")

// keySalt is a protocol constant, not a per-message salt. Key derivation
// must be deterministic so that two processes configured with the same
// secret derive the same key without any exchange.
const keySalt = "remotecmd/frame-key/v1"

// argon2id parameters: time=2, memory=64MiB, threads=1.
const (
	kdfTime    = 2
	kdfMemory  = 64 * 1024
	kdfThreads = 1
)

// Cipher seals and opens frame payloads. Construct once per client or
// server; key derivation is deliberately expensive.
type Cipher struct {
	aead cipher.AEAD
}

// New derives the symmetric key from secret and returns a ready Cipher.
func New(secret string) (*Cipher, error) {
	key := argon2.IDKey([]byte(secret), []byte(keySalt), kdfTime, kdfMemory, kdfThreads, chacha20poly1305.KeySize)
	defer zeroBytes(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("secure: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts plaintext with a fresh random nonce and returns
// nonce || ciphertext.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("secure: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open authenticates and decrypts a sealed frame produced by Seal.
func (c *Cipher) Open(frame []byte) ([]byte, error) {
	if len(frame) < chacha20poly1305.NonceSizeX {
		return nil, ErrAuthFailed
	}
	nonce, ciphertext := frame[:chacha20poly1305.NonceSizeX], frame[chacha20poly1305.NonceSizeX:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
