package models

import "time"

// User is a stored account. PublicKey never changes for the account's
// lifetime; PasswordVerifier and EncryptedPrivateKey are replaced together.
type User struct {
	ID                  string
	Username            string
	PasswordVerifier    []byte
	PublicKey           []byte
	EncryptedPrivateKey []byte
	CreatedAt           time.Time
}
