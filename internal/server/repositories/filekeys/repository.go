// Package filekeys stores per-user file key envelopes.
package filekeys

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// Repository defines persistence for envelopes keyed by (file_id, user_id).
type Repository interface {
	// Create inserts k unless an envelope for the same pair exists.
	// It reports whether a row was written.
	Create(ctx context.Context, k *models.FileKey) (bool, error)

	// GetForUser returns userID's envelope for fileID along with the file
	// and its owner's public key, or common.ErrorNotFound.
	GetForUser(ctx context.Context, fileID, userID string) (*models.FileKeyAccess, error)

	// Exists reports whether userID holds an envelope for fileID.
	Exists(ctx context.Context, fileID, userID string) (bool, error)

	// DeleteByUsername removes the envelope of the named user for fileID.
	// It reports how many rows were removed (0 or 1).
	DeleteByUsername(ctx context.Context, fileID, username string) (int64, error)
}
