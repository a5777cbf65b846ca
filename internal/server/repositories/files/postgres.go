package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// PostgresRepository implements file storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, f *models.File) error {
	query := `
		INSERT INTO files (id, user_id, filename, content_type, size)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, f.ID, f.UserID, f.Filename, f.ContentType, f.Size).Scan(&f.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetOwned(ctx context.Context, fileID, ownerID string) (*models.File, error) {
	query := `
		SELECT id, user_id, filename, content_type, size, created_at FROM files
		WHERE id = $1 AND user_id = $2
	`
	f := &models.File{}
	err := r.db.QueryRowContext(ctx, query, fileID, ownerID).
		Scan(&f.ID, &f.UserID, &f.Filename, &f.ContentType, &f.Size, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) ListAccessible(ctx context.Context, userID string) ([]models.AccessibleFile, error) {
	query := `
		SELECT f.id, f.user_id, f.filename, f.content_type, f.size, f.created_at, o.username
		FROM file_keys k
		JOIN files f ON f.id = k.file_id
		JOIN users o ON o.id = f.user_id
		WHERE k.user_id = $1
		ORDER BY f.created_at, f.id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []models.AccessibleFile
	for rows.Next() {
		var item models.AccessibleFile
		f := &item.File
		if err := rows.Scan(&f.ID, &f.UserID, &f.Filename, &f.ContentType, &f.Size, &f.CreatedAt, &item.OwnerUsername); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) ListShares(ctx context.Context, ownerID string) (map[string][]string, error) {
	query := `
		SELECT k.file_id, u.username
		FROM file_keys k
		JOIN files f ON f.id = k.file_id
		JOIN users u ON u.id = k.user_id
		WHERE f.user_id = $1 AND k.user_id <> $1
		ORDER BY u.username
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select shares: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var fileID, username string
		if err := rows.Scan(&fileID, &username); err != nil {
			return nil, err
		}
		result[fileID] = append(result[fileID], username)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, fileID, ownerID string) error {
	query := `DELETE FROM files WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, fileID, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
