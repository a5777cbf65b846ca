// Package files declares the repository for uploaded file metadata.
package files

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type Repository interface {
	// Create inserts f (ID already assigned) and fills CreatedAt.
	Create(ctx context.Context, f *models.File) error
	// GetOwned returns the file only if ownerID owns it, else common.ErrorNotFound.
	GetOwned(ctx context.Context, fileID, ownerID string) (*models.File, error)
	// ListAccessible returns every file userID holds an envelope for.
	ListAccessible(ctx context.Context, userID string) ([]models.AccessibleFile, error)
	// ListShares maps each file owned by ownerID to the other usernames holding envelopes.
	ListShares(ctx context.Context, ownerID string) (map[string][]string, error)
	// Delete removes a file owned by ownerID; envelopes cascade.
	Delete(ctx context.Context, fileID, ownerID string) error
}
