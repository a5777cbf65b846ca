// Package sessions declares the server-side repository contract for login
// sessions in persistent storage.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// Repository defines operations for creating, resolving and revoking sessions.
type Repository interface {
	// Create stores a new session row.
	Create(ctx context.Context, s *models.Session) error

	// FindActive returns the session joined with its user when it exists and
	// has not expired. Otherwise it returns common.ErrorNotFound.
	FindActive(ctx context.Context, id string) (*models.SessionUser, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes every expired session and reports how many.
	DeleteExpired(ctx context.Context) (int64, error)
}
