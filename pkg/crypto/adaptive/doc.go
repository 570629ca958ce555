// Package adaptive selects an AEAD cipher suited to the host CPU.
//
// Both constructions take a 256-bit key and authenticate associated
// data: AES-256-GCM is used where the CPU has hardware AES (amd64,
// arm64), ChaCha20-Poly1305 everywhere else, where software AES would
// be slow and timing-unsafe. Encrypt prepends the random nonce to its
// output, so a sealed blob is self-contained and Decrypt needs only
// the key.
//
//	c, err := adaptive.New(key)
//	sealed, err := c.Encrypt(table, nil)
//	table, err := c.Decrypt(sealed, nil)
//
// The token store uses this package to seal the token table at rest.
package adaptive
