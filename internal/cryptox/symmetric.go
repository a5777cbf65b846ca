// Package cryptox wraps the NaCl and Argon2 primitives used by filevault.
//
// Symmetric ciphertexts are secretbox outputs with the random nonce
// prepended:
//
//	[ 24-byte nonce ][ secretbox(plaintext) ]
//
// Asymmetric envelopes use the same layout with box instead of secretbox.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// KeySize is the length of every symmetric and Curve25519 key.
	KeySize = 32
	// NonceSize is the NaCl nonce length.
	NonceSize = 24
)

var (
	// ErrDecryption is returned when authentication of a ciphertext fails.
	ErrDecryption = errors.New("decryption failed")
	// ErrInvalidKey is returned for key material of the wrong length.
	ErrInvalidKey = errors.New("invalid key")
)

// NewSymmetricKey returns a fresh random secretbox key.
func NewSymmetricKey() (*[KeySize]byte, error) {
	var key [KeySize]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, fmt.Errorf("key generation: %w", err)
	}
	return &key, nil
}

// Seal encrypts plaintext with key, prepending a random nonce.
func Seal(plaintext []byte, key *[KeySize]byte) ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, key), nil
}

// Open decrypts a Seal output.
func Open(ciphertext []byte, key *[KeySize]byte) ([]byte, error) {
	if len(ciphertext) < NonceSize+secretbox.Overhead {
		return nil, ErrDecryption
	}
	var nonce [NonceSize]byte
	copy(nonce[:], ciphertext[:NonceSize])
	plain, ok := secretbox.Open(nil, ciphertext[NonceSize:], &nonce, key)
	if !ok {
		return nil, ErrDecryption
	}
	return plain, nil
}

// DeriveSubkey derives a 32-byte key from a configured secret with
// HKDF-SHA256. Different info strings give independent keys.
func DeriveSubkey(secret []byte, info string) (*[KeySize]byte, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("subkey %q: %w", info, ErrInvalidKey)
	}
	h := hkdf.New(sha256.New, secret, nil, []byte(info))
	var key [KeySize]byte
	if _, err := io.ReadFull(h, key[:]); err != nil {
		return nil, fmt.Errorf("key derivation: %w", err)
	}
	return &key, nil
}

// KeyFromBytes copies b into a fixed-size key.
func KeyFromBytes(b []byte) (*[KeySize]byte, error) {
	if len(b) != KeySize {
		return nil, ErrInvalidKey
	}
	var key [KeySize]byte
	copy(key[:], b)
	return &key, nil
}

// Wipe zeroes key material.
func Wipe(key *[KeySize]byte) {
	if key == nil {
		return
	}
	for i := range key {
		key[i] = 0
	}
}
