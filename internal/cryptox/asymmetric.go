package cryptox

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// KeyPair is a Curve25519 key pair usable with nacl/box.
type KeyPair struct {
	Public  *[KeySize]byte
	Private *[KeySize]byte
}

// GenerateKeyPair returns a fresh box key pair.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("key pair generation: %w", err)
	}
	return &KeyPair{Public: pub, Private: priv}, nil
}

// PublicKeyOf recomputes the public half of a box private key.
func PublicKeyOf(priv *[KeySize]byte) (*[KeySize]byte, error) {
	b, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("public key derivation: %w", err)
	}
	return KeyFromBytes(b)
}

// SealFor encrypts plaintext for recipientPub, authenticated by senderPriv.
// Output is nonce || box.
func SealFor(plaintext []byte, recipientPub, senderPriv *[KeySize]byte) ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}
	return box.Seal(nonce[:], plaintext, &nonce, recipientPub, senderPriv), nil
}

// OpenFrom decrypts a SealFor output sent by senderPub to recipientPriv.
func OpenFrom(ciphertext []byte, senderPub, recipientPriv *[KeySize]byte) ([]byte, error) {
	if len(ciphertext) < NonceSize+box.Overhead {
		return nil, ErrDecryption
	}
	var nonce [NonceSize]byte
	copy(nonce[:], ciphertext[:NonceSize])
	plain, ok := box.Open(nil, ciphertext[NonceSize:], &nonce, senderPub, recipientPriv)
	if !ok {
		return nil, ErrDecryption
	}
	return plain, nil
}
