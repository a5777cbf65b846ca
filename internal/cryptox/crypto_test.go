package cryptox

import (
	"bytes"
	"errors"
	"testing"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fast parameters, the cost is irrelevant to correctness
var testParams = Argon2Params{Time: 1, Memory: 64, Threads: 1}

func newTestKD(t *testing.T, pepper string) *KeyDerivation {
	t.Helper()
	kd, err := NewKeyDerivation([]byte(pepper), WithVerifierParams(testParams), WithWrapParams(testParams))
	require.NoError(t, err)
	return kd
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key, err := NewSymmetricKey()
	require.NoError(t, err)

	ct, err := Seal([]byte("hello world!"), key)
	require.NoError(t, err)

	pt, err := Open(ct, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world!"), pt)
}

func TestOpen_TamperedAndShort(t *testing.T) {
	key, _ := NewSymmetricKey()
	ct, _ := Seal([]byte("payload"), key)

	ct[len(ct)-1] ^= 0xff
	_, err := Open(ct, key)
	assert.ErrorIs(t, err, ErrDecryption)

	_, err = Open([]byte("short"), key)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestSealFor_OpenFrom(t *testing.T) {
	alice, err := GenerateKeyPair()
	require.NoError(t, err)
	bob, err := GenerateKeyPair()
	require.NoError(t, err)

	ct, err := SealFor([]byte("file-key"), bob.Public, alice.Private)
	require.NoError(t, err)

	pt, err := OpenFrom(ct, alice.Public, bob.Private)
	require.NoError(t, err)
	assert.Equal(t, []byte("file-key"), pt)

	// wrong sender key must not authenticate
	mallory, _ := GenerateKeyPair()
	_, err = OpenFrom(ct, mallory.Public, bob.Private)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestPublicKeyOf_MatchesGenerated(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	pub, err := PublicKeyOf(kp.Private)
	require.NoError(t, err)
	assert.Equal(t, kp.Public[:], pub[:])
}

func TestDeriveSubkey(t *testing.T) {
	a1, err := DeriveSubkey([]byte("secret"), "a")
	require.NoError(t, err)
	a2, _ := DeriveSubkey([]byte("secret"), "a")
	b, _ := DeriveSubkey([]byte("secret"), "b")

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b)

	_, err = DeriveSubkey(nil, "a")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestKeyFromBytes(t *testing.T) {
	_, err := KeyFromBytes(make([]byte, 31))
	assert.ErrorIs(t, err, ErrInvalidKey)

	k, err := KeyFromBytes(bytes.Repeat([]byte{7}, KeySize))
	require.NoError(t, err)
	Wipe(k)
	assert.Equal(t, [KeySize]byte{}, *k)
}

func TestHashPassword_Verify(t *testing.T) {
	kd := newTestKD(t, "pepper")

	v, err := kd.HashPassword([]byte("correct horse battery"))
	require.NoError(t, err)
	assert.Len(t, v, verifierSize)

	ok, err := kd.VerifyPassword([]byte("correct horse battery"), v)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = kd.VerifyPassword([]byte("wrong horse battery"), v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_FreshSaltEachTime(t *testing.T) {
	kd := newTestKD(t, "pepper")

	v1, _ := kd.HashPassword([]byte("same password!"))
	v2, _ := kd.HashPassword([]byte("same password!"))
	assert.NotEqual(t, v1, v2)

	s1, _ := SaltFromVerifier(v1)
	s2, _ := SaltFromVerifier(v2)
	assert.NotEqual(t, s1, s2)
}

func TestVerifyPassword_WrongPepper(t *testing.T) {
	v, _ := newTestKD(t, "pepper-1").HashPassword([]byte("password1234"))

	_, err := newTestKD(t, "pepper-2").VerifyPassword([]byte("password1234"), v)
	assert.ErrorIs(t, err, common.ErrorKeyDerivation)
}

func TestVerifyPassword_Malformed(t *testing.T) {
	kd := newTestKD(t, "pepper")

	_, err := kd.VerifyPassword([]byte("x"), []byte("not a verifier"))
	assert.ErrorIs(t, err, common.ErrorKeyDerivation)

	_, err = SaltFromVerifier(nil)
	assert.ErrorIs(t, err, common.ErrorKeyDerivation)
}

func TestDeriveWrappingKey_Deterministic(t *testing.T) {
	kd := newTestKD(t, "pepper")
	salt := bytes.Repeat([]byte{1}, SaltSize)

	k1, err := kd.DeriveWrappingKey([]byte("pw"), salt)
	require.NoError(t, err)
	k2, _ := kd.DeriveWrappingKey([]byte("pw"), salt)
	k3, _ := kd.DeriveWrappingKey([]byte("pw"), bytes.Repeat([]byte{2}, SaltSize))

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)

	_, err = kd.DeriveWrappingKey([]byte("pw"), []byte("short"))
	assert.ErrorIs(t, err, common.ErrorKeyDerivation)
}

func TestSealOpenPrivateKey(t *testing.T) {
	kd := newTestKD(t, "pepper")
	kp, _ := GenerateKeyPair()
	v, _ := kd.HashPassword([]byte("password1234"))

	sealed, err := kd.SealPrivateKey([]byte("password1234"), v, kp.Private)
	require.NoError(t, err)

	priv, err := kd.OpenPrivateKey([]byte("password1234"), v, sealed)
	require.NoError(t, err)
	assert.Equal(t, kp.Private, priv)

	_, err = kd.OpenPrivateKey([]byte("other password"), v, sealed)
	assert.True(t, errors.Is(err, ErrDecryption))

	// a different verifier means a different salt and therefore a different key
	v2, _ := kd.HashPassword([]byte("password1234"))
	_, err = kd.OpenPrivateKey([]byte("password1234"), v2, sealed)
	assert.ErrorIs(t, err, ErrDecryption)
}
