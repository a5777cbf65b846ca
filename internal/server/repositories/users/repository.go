// Package users declares the server-side repository contract for user
// accounts and its PostgreSQL implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// Repository defines persistence for user accounts.
type Repository interface {
	// Create inserts user and fills its ID and CreatedAt. A taken username
	// yields common.ErrorConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByUsername returns common.ErrorNotFound when the username is unknown.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByID returns common.ErrorNotFound when the id is unknown.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByIDForUpdate is GetByID that also locks the row until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*models.User, error)

	// UpdateCredentials replaces the verifier and wrapped private key of
	// user id in one statement.
	UpdateCredentials(ctx context.Context, id string, verifier, encryptedPrivateKey []byte) error
}
