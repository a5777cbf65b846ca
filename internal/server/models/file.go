// Package models defines server-side data models persisted in the database
// and the values handed between services and transport.
package models

import "time"

// File describes stored metadata for an uploaded file. The encrypted body
// lives in the blob store under ID.
type File struct {
	ID          string
	UserID      string
	Filename    string
	ContentType string
	// Size is the plaintext byte count.
	Size      int64
	CreatedAt time.Time
}

// FileKey is one envelope: the file key boxed for UserID by the owner.
type FileKey struct {
	FileID       string
	UserID       string
	EncryptedKey []byte
}

// FileKeyAccess is what a reader needs to open its envelope.
type FileKeyAccess struct {
	File           File
	OwnerPublicKey []byte
	EncryptedKey   []byte
}

// AccessibleFile is a file visible to some user together with its owner.
type AccessibleFile struct {
	File          File
	OwnerUsername string
}

// FileOwner identifies who owns a listed file.
type FileOwner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsSelf   bool   `json:"is_self"`
}

// FileMeta is the listing entry returned to clients. SharedWith is only
// populated for files the caller owns.
type FileMeta struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	Owner       FileOwner `json:"owner"`
	SharedWith  []string  `json:"shared_with"`
}

// Download is a decrypted file ready to hand back to its reader.
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}
