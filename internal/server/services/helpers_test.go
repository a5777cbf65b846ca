package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/filevault/internal/cryptox"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/auth"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/memory"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct horse battery"

var fastArgon = cryptox.Argon2Params{Time: 1, Memory: 64, Threads: 1}

type testEnv struct {
	store   *memory.Store
	blobs   *blobstore.MemoryStore
	users   *UserService
	files   *FileService
	sharing *SharingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	return newTestEnvWith(t, store, store, blobstore.NewMemoryStore())
}

func newTestEnvWith(t *testing.T, store *memory.Store, m repomanager.RepositoryManager, blobs *blobstore.MemoryStore) *testEnv {
	t.Helper()

	kdf, err := cryptox.NewKeyDerivation([]byte("pepper"),
		cryptox.WithVerifierParams(fastArgon), cryptox.WithWrapParams(fastArgon))
	require.NoError(t, err)
	tokens, err := auth.NewTokenCodec([]byte("token-secret"), "filevault-test")
	require.NoError(t, err)

	cfg := &config.Config{SessionValidityDuration: time.Hour, MaxUploadSize: 1 << 20}
	log := logging.Nop{}

	us, err := NewUserService(store, m, kdf, tokens, cfg, log)
	require.NoError(t, err)

	return &testEnv{
		store:   store,
		blobs:   blobs,
		users:   us,
		files:   NewFileService(store, m, blobs, cfg, log),
		sharing: NewSharingService(store, m, log),
	}
}

// signup registers username and returns the identity behind its token.
func (e *testEnv) signup(t *testing.T, username string) *models.Identity {
	t.Helper()
	tok, err := e.users.CreateUser(context.Background(), username, testPassword, testPassword)
	require.NoError(t, err)
	id, err := e.users.ValidateSession(context.Background(), tok)
	require.NoError(t, err)
	return id
}

// recordingLogger keeps every message logged at error level.
type recordingLogger struct {
	logging.Nop
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Error(_ context.Context, msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) With(...any) logging.Logger { return l }

func (l *recordingLogger) errorMessages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}
