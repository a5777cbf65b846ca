package filekeys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, k *models.FileKey) (bool, error) {
	query := `
		INSERT INTO file_keys (file_id, user_id, encrypted_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (file_id, user_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, k.FileID, k.UserID, k.EncryptedKey)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) GetForUser(ctx context.Context, fileID, userID string) (*models.FileKeyAccess, error) {
	query := `
		SELECT f.id, f.user_id, f.filename, f.content_type, f.size, f.created_at, o.public_key, k.encrypted_key
		FROM file_keys k
		JOIN files f ON f.id = k.file_id
		JOIN users o ON o.id = f.user_id
		WHERE k.file_id = $1 AND k.user_id = $2
	`
	a := &models.FileKeyAccess{}
	f := &a.File
	err := r.db.QueryRowContext(ctx, query, fileID, userID).
		Scan(&f.ID, &f.UserID, &f.Filename, &f.ContentType, &f.Size, &f.CreatedAt, &a.OwnerPublicKey, &a.EncryptedKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, fileID, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM file_keys WHERE file_id = $1 AND user_id = $2)`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, fileID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) DeleteByUsername(ctx context.Context, fileID, username string) (int64, error) {
	query := `
		DELETE FROM file_keys
		WHERE file_id = $1 AND user_id IN (SELECT id FROM users WHERE username = $2)
	`
	res, err := r.db.ExecContext(ctx, query, fileID, username)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
