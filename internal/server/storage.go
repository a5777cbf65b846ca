package server

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/cryptox"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/auth"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/memory"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filevault/internal/server/services"
)

// Storage is the relational side of the server: a transaction-capable DB
// handle and the repository manager that matches it.
type Storage struct {
	DB    dbx.DB
	Repos repomanager.RepositoryManager

	sqlDB *sql.DB
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// OpenStorage connects to cfg.DatabaseDSN. The "memory://" DSN selects the
// in-process store. With migrate set, pending migrations are applied.
func OpenStorage(ctx context.Context, cfg *config.Config, migrate bool) (*Storage, error) {
	if cfg.DatabaseDSN == config.MemoryDSN {
		store := memory.NewStore()
		return &Storage{DB: store, Repos: store}, nil
	}

	db, err := sqlOpen("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if migrate {
		if err := m.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migration error: %w", err)
		}
	}
	return &Storage{DB: dbx.NewSQLDB(db), Repos: m, sqlDB: db}, nil
}

// Migrate applies pending migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	return s.Repos.RunMigrations(ctx, s.sqlDB)
}

func (s *Storage) Close() error {
	if s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// NewUserService builds the key derivation and token codec from cfg and
// returns a UserService on st.
func NewUserService(cfg *config.Config, st *Storage, logger logging.Logger) (*services.UserService, error) {
	kdf, err := cryptox.NewKeyDerivation([]byte(cfg.PasswordPepper))
	if err != nil {
		return nil, fmt.Errorf("key derivation init error: %w", err)
	}
	tokens, err := auth.NewTokenCodec([]byte(cfg.TokenSecret), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("token codec init error: %w", err)
	}
	return services.NewUserService(st.DB, st.Repos, kdf, tokens, cfg, logger)
}
