package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/cryptox"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// blobCleanupTimeout bounds blob removal that outlives the request.
const blobCleanupTimeout = 30 * time.Second

// FileService stores, lists, decrypts and deletes files. Each file body is
// sealed with its own random key; that key is kept only as envelopes boxed
// for each user allowed to read the file.
type FileService struct {
	db            dbx.DB
	repomanager   repomanager.RepositoryManager
	blobs         blobstore.Store
	maxUploadSize int64
	logger        logging.Logger
}

func NewFileService(db dbx.DB, m repomanager.RepositoryManager, blobs blobstore.Store, cfg *config.Config, logger logging.Logger) *FileService {
	return &FileService{
		db:            db,
		repomanager:   m,
		blobs:         blobs,
		maxUploadSize: cfg.MaxUploadSize,
		logger:        logging.ForModule(logger, "files"),
	}
}

// List returns every file the caller can read. SharedWith is filled only
// for files the caller owns.
func (s *FileService) List(ctx context.Context, id *models.Identity) ([]models.FileMeta, error) {
	conn := s.db.Conn()

	accessible, err := s.repomanager.Files(conn).ListAccessible(ctx, id.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing files: %w", err)
	}
	shares, err := s.repomanager.Files(conn).ListShares(ctx, id.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing shares: %w", err)
	}

	result := make([]models.FileMeta, 0, len(accessible))
	for _, a := range accessible {
		isSelf := a.File.UserID == id.ID
		sharedWith := []string{}
		if isSelf && len(shares[a.File.ID]) > 0 {
			sharedWith = shares[a.File.ID]
		}
		result = append(result, models.FileMeta{
			ID:          a.File.ID,
			Filename:    a.File.Filename,
			ContentType: a.File.ContentType,
			Size:        a.File.Size,
			CreatedAt:   a.File.CreatedAt,
			Owner:       models.FileOwner{ID: a.File.UserID, Username: a.OwnerUsername, IsSelf: isSelf},
			SharedWith:  sharedWith,
		})
	}
	return result, nil
}

// Upload encrypts data under a fresh file key, stores the ciphertext and
// records the file with the owner's envelope in one transaction. If the
// transaction fails the blob is removed again.
func (s *FileService) Upload(ctx context.Context, id *models.Identity, filename, contentType string, data []byte) (*models.FileMeta, error) {
	if filename == "" {
		return nil, common.Validation(msgFilenameRequired)
	}
	if contentType == "" {
		contentType = common.DefaultContentType
	}
	if s.maxUploadSize > 0 && int64(len(data)) > s.maxUploadSize {
		return nil, common.Validation(msgFileTooLarge)
	}

	fileID := uuid.NewString()
	fileKey, err := cryptox.NewSymmetricKey()
	if err != nil {
		return nil, fmt.Errorf("error generating file key: %w", err)
	}
	defer cryptox.Wipe(fileKey)

	ciphertext, err := cryptox.Seal(data, fileKey)
	if err != nil {
		return nil, fmt.Errorf("error encrypting file: %w", err)
	}

	pub, err := id.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("error deriving public key: %w", err)
	}
	envelope, err := cryptox.SealFor(fileKey[:], pub, id.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("error sealing file key: %w", err)
	}

	if err := s.blobs.Put(ctx, fileID, ciphertext); err != nil {
		return nil, fmt.Errorf("error storing file: %w", err)
	}

	file := &models.File{
		ID:          fileID,
		UserID:      id.ID,
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
	}
	err = s.db.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Files(tx).Create(ctx, file); err != nil {
			return err
		}
		_, err := s.repomanager.FileKeys(tx).Create(ctx, &models.FileKey{FileID: fileID, UserID: id.ID, EncryptedKey: envelope})
		return err
	})
	if err != nil {
		s.logger.Error(ctx, "upload failed, removing blob", "file_id", fileID, "error", err)
		if delErr := s.removeBlob(ctx, fileID); delErr != nil {
			s.logger.Error(ctx, "orphaned blob", "file_id", fileID, "error", delErr)
		}
		return nil, fmt.Errorf("error saving file: %w", err)
	}

	s.logger.Info(ctx, "file uploaded", "file_id", fileID, "user_id", id.ID, "size", file.Size)
	return &models.FileMeta{
		ID:          file.ID,
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Size:        file.Size,
		CreatedAt:   file.CreatedAt,
		Owner:       models.FileOwner{ID: id.ID, Username: id.Username, IsSelf: true},
		SharedWith:  []string{},
	}, nil
}

// Retrieve opens the caller's envelope and decrypts the file body.
func (s *FileService) Retrieve(ctx context.Context, id *models.Identity, fileID string) (*models.Download, error) {
	if uuid.Validate(fileID) != nil {
		return nil, common.NotFound(msgFileNotFound)
	}

	access, err := s.repomanager.FileKeys(s.db.Conn()).GetForUser(ctx, fileID, id.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound(msgFileNotFound)
		}
		return nil, fmt.Errorf("error loading file key: %w", err)
	}

	fileKey, err := openFileKey(access, id)
	if err != nil {
		s.logger.Error(ctx, "file key envelope did not open", "file_id", fileID, "user_id", id.ID, "error", err)
		return nil, common.Integrity(msgFileUnreadable, err)
	}
	defer cryptox.Wipe(fileKey)

	ciphertext, err := s.blobs.Get(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "blob missing", "file_id", fileID)
			return nil, common.Integrity(msgFileUnreadable, err)
		}
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	data, err := cryptox.Open(ciphertext, fileKey)
	if err != nil {
		s.logger.Error(ctx, "blob did not decrypt", "file_id", fileID, "error", err)
		return nil, common.Integrity(msgFileUnreadable, err)
	}

	return &models.Download{
		Filename:    access.File.Filename,
		ContentType: access.File.ContentType,
		Data:        data,
	}, nil
}

// openFileKey recovers the file key: the owner sealed it for the reader.
func openFileKey(access *models.FileKeyAccess, id *models.Identity) (*[cryptox.KeySize]byte, error) {
	ownerPub, err := cryptox.KeyFromBytes(access.OwnerPublicKey)
	if err != nil {
		return nil, err
	}
	raw, err := cryptox.OpenFrom(access.EncryptedKey, ownerPub, id.PrivateKey)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(raw)
	return cryptox.KeyFromBytes(raw)
}

// Delete removes a file the caller owns, all its envelopes and its blob.
func (s *FileService) Delete(ctx context.Context, id *models.Identity, fileID string) error {
	if uuid.Validate(fileID) != nil {
		return common.NotFound(msgFileNotFound)
	}

	if err := s.repomanager.Files(s.db.Conn()).Delete(ctx, fileID, id.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NotFound(msgFileNotFound)
		}
		return fmt.Errorf("error deleting file: %w", err)
	}

	if err := s.removeBlob(ctx, fileID); err != nil {
		s.logger.Warn(ctx, "orphaned blob after delete", "file_id", fileID, "error", err)
	}
	s.logger.Info(ctx, "file deleted", "file_id", fileID, "user_id", id.ID)
	return nil
}

// removeBlob deletes the blob even when the caller's ctx is already done;
// its rows are gone or were never written.
func (s *FileService) removeBlob(ctx context.Context, fileID string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), blobCleanupTimeout)
	defer cancel()
	return s.blobs.Delete(ctx, fileID)
}
