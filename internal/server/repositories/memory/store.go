// Package memory keeps every repository in process memory. It backs the
// "memory://" DSN for development and the service tests.
//
// Store implements both dbx.DB and the repository manager contract.
// Transactions hold the store lock for their whole duration and restore a
// snapshot when fn fails.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/filekeys"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/users"
)

var errNoSQL = errors.New("memory: SQL is not supported")

type keyID struct {
	fileID string
	userID string
}

type state struct {
	users    map[string]models.User
	byName   map[string]string
	sessions map[string]models.Session
	files    map[string]models.File
	keys     map[keyID][]byte
}

func newState() *state {
	return &state{
		users:    make(map[string]models.User),
		byName:   make(map[string]string),
		sessions: make(map[string]models.Session),
		files:    make(map[string]models.File),
		keys:     make(map[keyID][]byte),
	}
}

func (s *state) clone() *state {
	return &state{
		users:    maps.Clone(s.users),
		byName:   maps.Clone(s.byName),
		sessions: maps.Clone(s.sessions),
		files:    maps.Clone(s.files),
		keys:     maps.Clone(s.keys),
	}
}

// Store is an in-memory database.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{st: newState(), now: time.Now}
}

// SetClock replaces the time source used for timestamps and expiry.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// txHandle marks repositories vended inside InTx; the lock is already held.
type txHandle struct{}

func (txHandle) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errNoSQL
}

func (txHandle) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNoSQL
}

func (txHandle) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

// Conn has no SQL connection to offer.
func (s *Store) Conn() dbx.DBTX {
	return nil
}

// InTx runs fn atomically. Repositories used inside fn must be vended from
// the tx handle it receives.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	defer func() {
		if p := recover(); p != nil {
			s.st = snapshot
			panic(p)
		}
		if err != nil {
			s.st = snapshot
		}
	}()

	return fn(ctx, txHandle{})
}

// RunMigrations is a no-op; there is no schema.
func (s *Store) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (s *Store) Users(db dbx.DBTX) users.Repository {
	return &usersRepo{base{store: s, inTx: isTx(db)}}
}

func (s *Store) Sessions(db dbx.DBTX) sessions.Repository {
	return &sessionsRepo{base{store: s, inTx: isTx(db)}}
}

func (s *Store) Files(db dbx.DBTX) files.Repository {
	return &filesRepo{base{store: s, inTx: isTx(db)}}
}

func (s *Store) FileKeys(db dbx.DBTX) filekeys.Repository {
	return &fileKeysRepo{base{store: s, inTx: isTx(db)}}
}

func isTx(db dbx.DBTX) bool {
	_, ok := db.(txHandle)
	return ok
}

type base struct {
	store *Store
	inTx  bool
}

// acquire locks the store unless a transaction already holds it and
// returns the live state.
func (b base) acquire() (*state, func()) {
	if b.inTx {
		return b.store.st, func() {}
	}
	b.store.mu.Lock()
	return b.store.st, b.store.mu.Unlock
}
