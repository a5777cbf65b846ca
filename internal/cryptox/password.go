package cryptox

import (
	"bytes"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/dmitrijs2005/filevault/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

// Argon2Params configures one argon2id invocation.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

var (
	// DefaultVerifierParams is the cost of the stored password hash.
	DefaultVerifierParams = Argon2Params{Time: 3, Memory: 64 * 1024, Threads: 4}
	// DefaultWrapParams is the cost of the private-key wrapping key.
	DefaultWrapParams = Argon2Params{Time: 4, Memory: 128 * 1024, Threads: 4}
)

const (
	saltSize = 16
	hashSize = 32

	// SaltSize is the length of the wrapping-key salt taken from the
	// tail of a verifier.
	SaltSize = saltSize
)

// verifier layout:
//
//	[ "fv1" ][ 24-byte nonce ][ secretbox(salt(16) || hash(32)) ]
var verifierMagic = []byte("fv1")

const verifierSize = 3 + NonceSize + secretbox.Overhead + saltSize + hashSize

// KeyDerivation turns passwords into stored verifiers and into the
// symmetric keys that wrap each user's private key. Verifiers are sealed
// under a server-held pepper so a leaked users table alone is not enough
// to mount an offline guessing attack.
type KeyDerivation struct {
	pepper         *[KeySize]byte
	verifierParams Argon2Params
	wrapParams     Argon2Params
}

// Option customizes a KeyDerivation.
type Option func(*KeyDerivation)

// WithVerifierParams overrides the verifier hash cost.
func WithVerifierParams(p Argon2Params) Option {
	return func(k *KeyDerivation) { k.verifierParams = p }
}

// WithWrapParams overrides the wrapping-key derivation cost.
func WithWrapParams(p Argon2Params) Option {
	return func(k *KeyDerivation) { k.wrapParams = p }
}

// NewKeyDerivation builds a KeyDerivation whose pepper is derived from
// pepperSecret.
func NewKeyDerivation(pepperSecret []byte, opts ...Option) (*KeyDerivation, error) {
	pepper, err := DeriveSubkey(pepperSecret, "filevault-password-pepper")
	if err != nil {
		return nil, err
	}
	k := &KeyDerivation{
		pepper:         pepper,
		verifierParams: DefaultVerifierParams,
		wrapParams:     DefaultWrapParams,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

func (k *KeyDerivation) hash(password, salt []byte) []byte {
	p := k.verifierParams
	return argon2.IDKey(password, salt, p.Time, p.Memory, p.Threads, hashSize)
}

// HashPassword returns a fresh verifier for password.
func (k *KeyDerivation) HashPassword(password []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("salt generation: %w", err)
	}

	record := append(salt, k.hash(password, salt)...)
	defer common.WipeByteArray(record)

	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}

	out := make([]byte, 0, verifierSize)
	out = append(out, verifierMagic...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, record, &nonce, k.pepper), nil
}

func (k *KeyDerivation) openVerifier(verifier []byte) ([]byte, error) {
	if len(verifier) != verifierSize || !bytes.HasPrefix(verifier, verifierMagic) {
		return nil, fmt.Errorf("%w: malformed verifier", common.ErrorKeyDerivation)
	}
	var nonce [NonceSize]byte
	copy(nonce[:], verifier[len(verifierMagic):len(verifierMagic)+NonceSize])

	record, ok := secretbox.Open(nil, verifier[len(verifierMagic)+NonceSize:], &nonce, k.pepper)
	if !ok {
		return nil, fmt.Errorf("%w: verifier does not open under the configured pepper", common.ErrorKeyDerivation)
	}
	return record, nil
}

// VerifyPassword reports whether password matches verifier. The hash
// comparison is constant time.
func (k *KeyDerivation) VerifyPassword(password, verifier []byte) (bool, error) {
	record, err := k.openVerifier(verifier)
	if err != nil {
		return false, err
	}
	defer common.WipeByteArray(record)

	salt, want := record[:saltSize], record[saltSize:]
	got := k.hash(password, salt)
	defer common.WipeByteArray(got)

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// SaltFromVerifier returns the trailing SaltSize bytes of verifier, which
// salt the wrapping-key derivation.
func SaltFromVerifier(verifier []byte) ([]byte, error) {
	if len(verifier) != verifierSize || !bytes.HasPrefix(verifier, verifierMagic) {
		return nil, fmt.Errorf("%w: malformed verifier", common.ErrorKeyDerivation)
	}
	salt := make([]byte, SaltSize)
	copy(salt, verifier[len(verifier)-SaltSize:])
	return salt, nil
}

// DeriveWrappingKey derives the symmetric key that wraps a private key.
// The same (password, salt) always yields the same key.
func (k *KeyDerivation) DeriveWrappingKey(password, salt []byte) (*[KeySize]byte, error) {
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: salt must be %d bytes", common.ErrorKeyDerivation, SaltSize)
	}
	p := k.wrapParams
	b := argon2.IDKey(password, salt, p.Time, p.Memory, p.Threads, KeySize)
	defer common.WipeByteArray(b)
	return KeyFromBytes(b)
}

func (k *KeyDerivation) wrappingKeyFor(password, verifier []byte) (*[KeySize]byte, error) {
	salt, err := SaltFromVerifier(verifier)
	if err != nil {
		return nil, err
	}
	return k.DeriveWrappingKey(password, salt)
}

// SealPrivateKey encrypts priv under the wrapping key for (password, verifier).
func (k *KeyDerivation) SealPrivateKey(password, verifier []byte, priv *[KeySize]byte) ([]byte, error) {
	wk, err := k.wrappingKeyFor(password, verifier)
	if err != nil {
		return nil, err
	}
	defer Wipe(wk)
	return Seal(priv[:], wk)
}

// OpenPrivateKey reverses SealPrivateKey. ErrDecryption means the verifier
// and the sealed key do not belong together.
func (k *KeyDerivation) OpenPrivateKey(password, verifier, sealed []byte) (*[KeySize]byte, error) {
	wk, err := k.wrappingKeyFor(password, verifier)
	if err != nil {
		return nil, err
	}
	defer Wipe(wk)

	plain, err := Open(sealed, wk)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(plain)
	return KeyFromBytes(plain)
}
