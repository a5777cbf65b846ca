package models

import "github.com/dmitrijs2005/filevault/internal/cryptox"

// Identity is the authenticated caller of a single request. It holds the
// decrypted private key and must not outlive that request.
type Identity struct {
	ID         string
	Username   string
	SessionID  string
	PrivateKey *[cryptox.KeySize]byte
}

// PublicKey derives the public half of the caller's key pair.
func (i *Identity) PublicKey() (*[cryptox.KeySize]byte, error) {
	return cryptox.PublicKeyOf(i.PrivateKey)
}

// Wipe zeroes the private key.
func (i *Identity) Wipe() {
	if i == nil {
		return
	}
	cryptox.Wipe(i.PrivateKey)
}
