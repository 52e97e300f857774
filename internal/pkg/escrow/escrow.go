// Package escrow holds a plaintext password across a second-factor round
// trip without either stored half revealing it: the XOR ciphertext stays in
// the server-side challenge record, the secret travels to the client and
// comes back with the code.
package escrow

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// ErrInvalidEscrowLength means the secret is shorter than the data it should
// cover. That is a configuration error, not user input: secrets are generated
// at a fixed size well above any accepted password length.
var ErrInvalidEscrowLength = errors.New("escrow secret shorter than input")

// GenerateSecret returns size cryptographically random bytes. Each escrow
// instance gets a fresh secret; reuse would let two ciphertexts cancel out.
func GenerateSecret(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate escrow secret: %w", err)
	}
	return b, nil
}

// Obscure XORs plaintext with secret. Requires len(secret) >= len(plaintext).
func Obscure(plaintext, secret []byte) ([]byte, error) {
	return xor(plaintext, secret)
}

// Reveal is Obscure's inverse; XOR with the same secret round-trips.
func Reveal(ciphertext, secret []byte) ([]byte, error) {
	return xor(ciphertext, secret)
}

func xor(data, secret []byte) ([]byte, error) {
	if len(secret) < len(data) {
		return nil, ErrInvalidEscrowLength
	}
	out := make([]byte, len(data))
	for i, c := range data {
		out[i] = c ^ secret[i]
	}
	return out, nil
}
