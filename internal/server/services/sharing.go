package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/cryptox"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// SharingService grants and revokes read access to owned files by adding
// or removing envelopes. File bodies are never touched.
type SharingService struct {
	db          dbx.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewSharingService(db dbx.DB, m repomanager.RepositoryManager, logger logging.Logger) *SharingService {
	return &SharingService{
		db:          db,
		repomanager: m,
		logger:      logging.ForModule(logger, "sharing"),
	}
}

// ownedFile checks that the caller owns fileID.
func (s *SharingService) ownedFile(ctx context.Context, id *models.Identity, fileID string) (*models.File, error) {
	if uuid.Validate(fileID) != nil {
		return nil, common.NotFound(msgFileNotFound)
	}
	f, err := s.repomanager.Files(s.db.Conn()).GetOwned(ctx, fileID, id.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound(msgFileNotFound)
		}
		return nil, fmt.Errorf("error loading file: %w", err)
	}
	return f, nil
}

// Share gives username read access to a file the caller owns. Sharing
// with someone who already has access succeeds without changes.
func (s *SharingService) Share(ctx context.Context, id *models.Identity, fileID, username string) error {
	if username == id.Username {
		return common.Validation(msgShareSelf)
	}
	if _, err := s.ownedFile(ctx, id, fileID); err != nil {
		return err
	}

	conn := s.db.Conn()
	grantee, err := s.repomanager.Users(conn).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.Validation(msgUnknownUser)
		}
		return fmt.Errorf("error loading user: %w", err)
	}

	keys := s.repomanager.FileKeys(conn)
	exists, err := keys.Exists(ctx, fileID, grantee.ID)
	if err != nil {
		return fmt.Errorf("error checking envelope: %w", err)
	}
	if exists {
		return nil
	}

	own, err := keys.GetForUser(ctx, fileID, id.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "owner envelope missing", "file_id", fileID, "user_id", id.ID)
			return common.Integrity(msgFileUnshareable, err)
		}
		return fmt.Errorf("error loading file key: %w", err)
	}

	fileKey, err := openFileKey(own, id)
	if err != nil {
		s.logger.Error(ctx, "owner envelope did not open", "file_id", fileID, "user_id", id.ID, "error", err)
		return common.Integrity(msgFileUnshareable, err)
	}
	defer cryptox.Wipe(fileKey)

	granteePub, err := cryptox.KeyFromBytes(grantee.PublicKey)
	if err != nil {
		s.logger.Error(ctx, "stored public key malformed", "user_id", grantee.ID, "error", err)
		return common.Integrity(msgFileUnshareable, err)
	}
	envelope, err := cryptox.SealFor(fileKey[:], granteePub, id.PrivateKey)
	if err != nil {
		return fmt.Errorf("error sealing file key: %w", err)
	}

	inserted, err := keys.Create(ctx, &models.FileKey{FileID: fileID, UserID: grantee.ID, EncryptedKey: envelope})
	if err != nil {
		return fmt.Errorf("error saving envelope: %w", err)
	}
	if inserted {
		s.logger.Info(ctx, "file shared", "file_id", fileID, "owner_id", id.ID, "grantee_id", grantee.ID)
	}
	return nil
}

// Unshare removes username's access to a file the caller owns. Removing
// access that does not exist succeeds.
func (s *SharingService) Unshare(ctx context.Context, id *models.Identity, fileID, username string) error {
	if _, err := s.ownedFile(ctx, id, fileID); err != nil {
		return err
	}
	if username == id.Username {
		return common.Validation(msgUnshareSelf)
	}

	n, err := s.repomanager.FileKeys(s.db.Conn()).DeleteByUsername(ctx, fileID, username)
	if err != nil {
		return fmt.Errorf("error deleting envelope: %w", err)
	}
	if n > 0 {
		s.logger.Info(ctx, "file unshared", "file_id", fileID, "owner_id", id.ID, "username", username)
	}
	return nil
}
