package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const (
	insertQ = `(?s)^INSERT\s+INTO\s+users\s*\(username,\s*password_verifier,\s*public_key,\s*encrypted_private_key\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+id,\s*created_at\s*$`
	byNameQ = `(?s)^SELECT\s+id,\s*username,\s*password_verifier,\s*public_key,\s*encrypted_private_key,\s*created_at\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1$`
	byIDQ   = `(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
	lockQ   = `(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE$`
	updateQ = `(?s)^UPDATE\s+users\s+SET\s+password_verifier\s*=\s*\$1,\s*encrypted_private_key\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$3\s*$`
)

var userCols = []string{"id", "username", "password_verifier", "public_key", "encrypted_private_key", "created_at"}

func testUser() *models.User {
	return &models.User{
		Username:            "alice",
		PasswordVerifier:    []byte("verifier"),
		PublicKey:           []byte("pub"),
		EncryptedPrivateKey: []byte("encpriv"),
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(insertQ).
		WithArgs("alice", []byte("verifier"), []byte("pub"), []byte("encpriv")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("42", now))

	got, err := repo.Create(context.Background(), testUser())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "42" || got.Username != "alice" || !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestCreate_UsernameTaken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WithArgs("alice", []byte("verifier"), []byte("pub"), []byte("encpriv")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), testUser())
	if !errors.Is(err, common.ErrorConflict) {
		t.Fatalf("want common.ErrorConflict, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WithArgs("alice", []byte("verifier"), []byte("pub"), []byte("encpriv")).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), testUser())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByUsername_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(userCols).
		AddRow("u-1", "alice", []byte("ver"), []byte("pub"), []byte("enc"), time.Now())
	mock.ExpectQuery(byNameQ).
		WithArgs("alice").
		WillReturnRows(rows)

	got, err := repo.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByUsername error: %v", err)
	}
	if got.ID != "u-1" || got.Username != "alice" || string(got.PublicKey) != "pub" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByUsername_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(byNameQ).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(byIDQ).
		WithArgs("u-1").
		WillReturnError(errors.New("db err"))

	_, err := repo.GetByID(context.Background(), "u-1")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByIDForUpdate_LocksRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(lockQ).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u-1", "alice", []byte("verifier"), []byte("pub"), []byte("encpriv"), now))

	got, err := repo.GetByIDForUpdate(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetByIDForUpdate error: %v", err)
	}
	if got.ID != "u-1" || got.Username != "alice" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByIDForUpdate_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(lockQ).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByIDForUpdate(context.Background(), "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestUpdateCredentials(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(updateQ).
			WithArgs([]byte("v2"), []byte("k2"), "u-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := repo.UpdateCredentials(context.Background(), "u-1", []byte("v2"), []byte("k2")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(updateQ).
			WithArgs([]byte("v2"), []byte("k2"), "nope").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateCredentials(context.Background(), "nope", []byte("v2"), []byte("k2"))
		if !errors.Is(err, common.ErrorNotFound) {
			t.Fatalf("want common.ErrorNotFound, got %v", err)
		}
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(updateQ).
			WithArgs([]byte("v2"), []byte("k2"), "u-1").
			WillReturnError(errors.New("db err"))

		err := repo.UpdateCredentials(context.Background(), "u-1", []byte("v2"), []byte("k2"))
		if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
			t.Fatalf("expected wrapped db error, got %v", err)
		}
	})
}
