package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/memory"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------- test fakes --------

type failingFilesRepo struct {
	files.Repository
	err error
}

func (f *failingFilesRepo) Create(context.Context, *models.File) error {
	return f.err
}

// failingFilesManager serves everything from the memory store except file
// inserts, which fail.
type failingFilesManager struct {
	*memory.Store
	err error
}

func (m *failingFilesManager) Files(db dbx.DBTX) files.Repository {
	return &failingFilesRepo{Repository: m.Store.Files(db), err: m.err}
}

// ctxBlobs refuses work on a done ctx the way the S3 client does. When
// cancel is set it fires right after a successful Put, as if the caller
// hung up mid-request.
type ctxBlobs struct {
	*blobstore.MemoryStore
	cancel context.CancelFunc
}

func (b *ctxBlobs) Put(ctx context.Context, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.MemoryStore.Put(ctx, id, data); err != nil {
		return err
	}
	if b.cancel != nil {
		b.cancel()
	}
	return nil
}

func (b *ctxBlobs) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.MemoryStore.Delete(ctx, id)
}

// -------- tests --------

func TestUpload_StoresCiphertextOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "alice")

	plain := []byte("a secret body that must not be stored in the clear")
	meta, err := env.files.Upload(ctx, alice, "secret.txt", "", plain)
	require.NoError(t, err)

	assert.NoError(t, uuid.Validate(meta.ID))
	assert.Equal(t, common.DefaultContentType, meta.ContentType)
	assert.Equal(t, int64(len(plain)), meta.Size)
	assert.True(t, meta.Owner.IsSelf)
	assert.Empty(t, meta.SharedWith)

	stored, err := env.blobs.Get(ctx, meta.ID)
	require.NoError(t, err)
	assert.NotEqual(t, plain, stored)
	assert.False(t, bytes.Contains(stored, plain))
}

func TestUpload_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "alice")

	_, err := env.files.Upload(ctx, alice, "", "text/plain", []byte("x"))
	require.ErrorIs(t, err, common.ErrorValidation)
	assert.Equal(t, msgFilenameRequired, common.PublicMessage(err, ""))

	_, err = env.files.Upload(ctx, alice, "big.bin", "", make([]byte, 1<<20+1))
	require.ErrorIs(t, err, common.ErrorValidation)
	assert.Equal(t, msgFileTooLarge, common.PublicMessage(err, ""))

	assert.Equal(t, 0, env.blobs.Len())
}

func TestUpload_EmptyFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "alice")

	meta, err := env.files.Upload(ctx, alice, "empty", "", nil)
	require.NoError(t, err)

	dl, err := env.files.Retrieve(ctx, alice, meta.ID)
	require.NoError(t, err)
	assert.Empty(t, dl.Data)
}

func TestUpload_RemovesBlobAfterCallerCancels(t *testing.T) {
	store := memory.NewStore()
	m := &failingFilesManager{Store: store, err: errors.New("insert failed")}
	env := newTestEnvWith(t, store, m, blobstore.NewMemoryStore())
	alice := env.signup(t, "alice")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	blobs := &ctxBlobs{MemoryStore: blobstore.NewMemoryStore(), cancel: cancel}
	svc := NewFileService(store, m, blobs, &config.Config{MaxUploadSize: 1 << 20}, logging.Nop{})

	_, err := svc.Upload(ctx, alice, "a.txt", "", []byte("data"))
	require.Error(t, err)
	require.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Equal(t, 0, blobs.Len())
}

func TestDelete_RemovesBlobAfterCallerCancels(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "alice")

	blobs := &ctxBlobs{MemoryStore: env.blobs}
	svc := NewFileService(env.store, env.store, blobs, &config.Config{MaxUploadSize: 1 << 20}, logging.Nop{})

	meta, err := svc.Upload(context.Background(), alice, "a.txt", "", []byte("data"))
	require.NoError(t, err)
	require.Equal(t, 1, blobs.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, svc.Delete(ctx, alice, meta.ID))
	assert.Equal(t, 0, blobs.Len())
}

func TestUpload_RemovesBlobWhenInsertFails(t *testing.T) {
	store := memory.NewStore()
	blobs := blobstore.NewMemoryStore()
	m := &failingFilesManager{Store: store, err: errors.New("insert failed")}
	env := newTestEnvWith(t, store, m, blobs)
	ctx := context.Background()

	alice := env.signup(t, "alice")

	_, err := env.files.Upload(ctx, alice, "a.txt", "", []byte("data"))
	require.Error(t, err)
	assert.Equal(t, 0, blobs.Len())

	list, err := env.files.List(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRetrieve_NotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "alice")

	for _, id := range []string{"not-a-uuid", uuid.NewString()} {
		_, err := env.files.Retrieve(ctx, alice, id)
		require.ErrorIs(t, err, common.ErrorNotFound)
		assert.Equal(t, msgFileNotFound, common.PublicMessage(err, ""))
	}
}

func TestRetrieve_MissingOrCorruptBlob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "alice")

	meta, err := env.files.Upload(ctx, alice, "a.txt", "", []byte("data"))
	require.NoError(t, err)

	require.NoError(t, env.blobs.Put(ctx, meta.ID, []byte("garbage that is long enough to hold a nonce")))
	_, err = env.files.Retrieve(ctx, alice, meta.ID)
	require.ErrorIs(t, err, common.ErrorIntegrity)
	assert.Equal(t, msgFileUnreadable, common.PublicMessage(err, ""))

	require.NoError(t, env.blobs.Delete(ctx, meta.ID))
	_, err = env.files.Retrieve(ctx, alice, meta.ID)
	require.ErrorIs(t, err, common.ErrorIntegrity)
}

func TestList_OrderAndOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "alice")
	bob := env.signup(t, "bob")

	a1, err := env.files.Upload(ctx, alice, "one.txt", "text/plain", []byte("1"))
	require.NoError(t, err)
	b1, err := env.files.Upload(ctx, bob, "bob.txt", "text/plain", []byte("b"))
	require.NoError(t, err)
	require.NoError(t, env.sharing.Share(ctx, bob, b1.ID, "alice"))
	require.NoError(t, env.sharing.Share(ctx, alice, a1.ID, "bob"))

	list, err := env.files.List(ctx, alice)
	require.NoError(t, err)

	type row struct {
		Filename   string
		Owner      string
		IsSelf     bool
		SharedWith []string
	}
	var got []row
	for _, f := range list {
		got = append(got, row{f.Filename, f.Owner.Username, f.Owner.IsSelf, f.SharedWith})
	}
	want := []row{
		{"one.txt", "alice", true, []string{"bob"}},
		{"bob.txt", "bob", false, []string{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "alice")
	bob := env.signup(t, "bob")

	meta, err := env.files.Upload(ctx, alice, "a.txt", "", []byte("data"))
	require.NoError(t, err)
	require.NoError(t, env.sharing.Share(ctx, alice, meta.ID, "bob"))

	err = env.files.Delete(ctx, bob, meta.ID)
	require.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, env.files.Delete(ctx, alice, meta.ID))
	assert.Equal(t, 0, env.blobs.Len())

	_, err = env.files.Retrieve(ctx, bob, meta.ID)
	require.ErrorIs(t, err, common.ErrorNotFound)

	err = env.files.Delete(ctx, alice, meta.ID)
	require.ErrorIs(t, err, common.ErrorNotFound)
}
