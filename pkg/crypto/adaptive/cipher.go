// Package adaptive selects an AEAD cipher suited to the host CPU.
package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// Algorithm names an AEAD construction.
type Algorithm string

const (
	AES256GCM        Algorithm = "aes-256-gcm"
	ChaCha20Poly1305 Algorithm = "chacha20-poly1305"
)

// KeySize is the only accepted key length. Both algorithms take a
// 256-bit key, so callers never need to know which one was picked.
const KeySize = 32

// Cipher is an AEAD with nonce handling folded in: Encrypt draws a
// random nonce and prepends it, Decrypt strips it again. Safe for
// concurrent use.
type Cipher struct {
	aead cipher.AEAD
	alg  Algorithm
}

// New creates a Cipher keyed with key, choosing AES-256-GCM on CPUs
// with hardware AES and ChaCha20-Poly1305 everywhere else.
func New(key []byte) (*Cipher, error) {
	if hardwareAES() {
		return NewWithAlgorithm(key, AES256GCM)
	}
	return NewWithAlgorithm(key, ChaCha20Poly1305)
}

// NewWithAlgorithm creates a Cipher with a caller-chosen algorithm.
func NewWithAlgorithm(key []byte, alg Algorithm) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("adaptive: key must be %d bytes, got %d", KeySize, len(key))
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch alg {
	case AES256GCM:
		var block cipher.Block
		block, err = aes.NewCipher(key)
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case ChaCha20Poly1305:
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("adaptive: unknown algorithm %q", alg)
	}
	if err != nil {
		return nil, err
	}

	return &Cipher{aead: aead, alg: alg}, nil
}

// hardwareAES reports whether the CPU accelerates AES. Go's crypto/aes
// uses AES-NI on amd64 and the ARMv8 crypto extensions on arm64; other
// architectures get a table-based fallback that is slower and not
// constant-time, so ChaCha20-Poly1305 is the better choice there.
func hardwareAES() bool {
	return runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64"
}

// Algorithm returns the construction this Cipher was built with.
func (c *Cipher) Algorithm() Algorithm {
	return c.alg
}

// NonceSize returns the nonce length Encrypt prepends.
func (c *Cipher) NonceSize() int {
	return c.aead.NonceSize()
}

// Overhead returns the authentication tag length.
func (c *Cipher) Overhead() int {
	return c.aead.Overhead()
}

// Encrypt seals plaintext, binding aad into the authentication tag.
// The returned slice is nonce followed by ciphertext and tag.
func (c *Cipher) Encrypt(plaintext, aad []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, aad), nil
}

// Decrypt opens a slice produced by Encrypt. Any tampering with the
// ciphertext or a mismatched aad fails authentication.
func (c *Cipher) Decrypt(sealed, aad []byte) ([]byte, error) {
	if len(sealed) < c.aead.NonceSize() {
		return nil, errors.New("adaptive: sealed data shorter than nonce")
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	return c.aead.Open(nil, nonce, ciphertext, aad)
}
