// Package tokenstore persists the table of currently-valid tokens.
package tokenstore

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/plotvault/plotvault-go/internal/core/domain"
	"github.com/plotvault/plotvault-go/pkg/crypto/adaptive"
)

// Sealed token tables carry an envelope at rest: the magic string, a
// per-write Argon2id salt, then nonce-prefixed AEAD ciphertext over the
// JSON table. Plain tables start with '{', sealed ones with the magic,
// so a loader can tell them apart without configuration.
const (
	sealMagic      = "PVSEAL1"
	sealSaltLength = 16

	// MinPassphraseLength is the smallest accepted sealing passphrase.
	MinPassphraseLength = 8
)

// Argon2id parameters for deriving the sealing key from the passphrase.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// IsSealed reports whether data carries the sealed-table envelope.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, []byte(sealMagic))
}

// sealer wraps and unwraps the at-rest envelope. The key is derived per
// write so a leaked salt never weakens other files.
type sealer struct {
	passphrase []byte
}

func newSealer(passphrase []byte) (*sealer, error) {
	if len(passphrase) < MinPassphraseLength {
		return nil, domain.ErrInvalidInput.WithDetails(
			fmt.Sprintf("sealing passphrase must be at least %d bytes", MinPassphraseLength))
	}
	return &sealer{passphrase: passphrase}, nil
}

func (s *sealer) deriveKey(salt []byte) []byte {
	return argon2.IDKey(s.passphrase, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// seal wraps plain in the envelope using a fresh random salt.
func (s *sealer) seal(plain []byte) ([]byte, error) {
	salt := make([]byte, sealSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("tokenstore: generate salt: %w", err)
	}

	cipher, err := adaptive.New(s.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("tokenstore: init cipher: %w", err)
	}
	sealed, err := cipher.Encrypt(plain, nil)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: seal table: %w", err)
	}

	out := make([]byte, 0, len(sealMagic)+sealSaltLength+len(sealed))
	out = append(out, sealMagic...)
	out = append(out, salt...)
	out = append(out, sealed...)
	return out, nil
}

// unseal unwraps the envelope. A wrong passphrase surfaces as a
// decryption failure; it is never silently treated as an empty table.
func (s *sealer) unseal(data []byte) ([]byte, error) {
	if !IsSealed(data) {
		return nil, fmt.Errorf("tokenstore: missing seal magic")
	}
	body := data[len(sealMagic):]
	if len(body) < sealSaltLength {
		return nil, fmt.Errorf("tokenstore: sealed table too short")
	}
	salt, sealed := body[:sealSaltLength], body[sealSaltLength:]

	cipher, err := adaptive.New(s.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("tokenstore: init cipher: %w", err)
	}
	plain, err := cipher.Decrypt(sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: unseal table: %w", err)
	}
	return plain, nil
}
