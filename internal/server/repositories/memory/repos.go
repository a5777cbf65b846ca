package memory

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/google/uuid"
)

type usersRepo struct{ base }

func (r *usersRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	st, unlock := r.acquire()
	defer unlock()

	if _, ok := st.byName[user.Username]; ok {
		return nil, common.ErrorConflict
	}
	user.ID = uuid.NewString()
	user.CreatedAt = r.store.now()
	st.users[user.ID] = cloneUser(*user)
	st.byName[user.Username] = user.ID
	return user, nil
}

func (r *usersRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	st, unlock := r.acquire()
	defer unlock()

	id, ok := st.byName[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u := cloneUser(st.users[id])
	return &u, nil
}

func (r *usersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	st, unlock := r.acquire()
	defer unlock()

	u, ok := st.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u = cloneUser(u)
	return &u, nil
}

// GetByIDForUpdate needs no row lock: InTx already holds the store.
func (r *usersRepo) GetByIDForUpdate(ctx context.Context, id string) (*models.User, error) {
	return r.GetByID(ctx, id)
}

func (r *usersRepo) UpdateCredentials(_ context.Context, id string, verifier, encryptedPrivateKey []byte) error {
	st, unlock := r.acquire()
	defer unlock()

	u, ok := st.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordVerifier = slices.Clone(verifier)
	u.EncryptedPrivateKey = slices.Clone(encryptedPrivateKey)
	st.users[id] = u
	return nil
}

func cloneUser(u models.User) models.User {
	u.PasswordVerifier = slices.Clone(u.PasswordVerifier)
	u.PublicKey = slices.Clone(u.PublicKey)
	u.EncryptedPrivateKey = slices.Clone(u.EncryptedPrivateKey)
	return u
}

type sessionsRepo struct{ base }

func (r *sessionsRepo) Create(_ context.Context, s *models.Session) error {
	st, unlock := r.acquire()
	defer unlock()

	if _, ok := st.sessions[s.ID]; ok {
		return common.ErrorConflict
	}
	if _, ok := st.users[s.UserID]; !ok {
		return common.ErrorNotFound
	}
	s.CreatedAt = r.store.now()
	st.sessions[s.ID] = *s
	return nil
}

func (r *sessionsRepo) FindActive(_ context.Context, id string) (*models.SessionUser, error) {
	st, unlock := r.acquire()
	defer unlock()

	s, ok := st.sessions[id]
	if !ok || !s.ExpiresAt.After(r.store.now()) {
		return nil, common.ErrorNotFound
	}
	u, ok := st.users[s.UserID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.SessionUser{SessionID: s.ID, UserID: u.ID, Username: u.Username, ExpiresAt: s.ExpiresAt}, nil
}

func (r *sessionsRepo) Delete(_ context.Context, id string) error {
	st, unlock := r.acquire()
	defer unlock()

	delete(st.sessions, id)
	return nil
}

func (r *sessionsRepo) DeleteExpired(_ context.Context) (int64, error) {
	st, unlock := r.acquire()
	defer unlock()

	now := r.store.now()
	var n int64
	for id, s := range st.sessions {
		if !s.ExpiresAt.After(now) {
			delete(st.sessions, id)
			n++
		}
	}
	return n, nil
}

type filesRepo struct{ base }

func (r *filesRepo) Create(_ context.Context, f *models.File) error {
	st, unlock := r.acquire()
	defer unlock()

	if _, ok := st.files[f.ID]; ok {
		return common.ErrorConflict
	}
	if _, ok := st.users[f.UserID]; !ok {
		return common.ErrorNotFound
	}
	f.CreatedAt = r.store.now()
	st.files[f.ID] = *f
	return nil
}

func (r *filesRepo) GetOwned(_ context.Context, fileID, ownerID string) (*models.File, error) {
	st, unlock := r.acquire()
	defer unlock()

	f, ok := st.files[fileID]
	if !ok || f.UserID != ownerID {
		return nil, common.ErrorNotFound
	}
	return &f, nil
}

func (r *filesRepo) ListAccessible(_ context.Context, userID string) ([]models.AccessibleFile, error) {
	st, unlock := r.acquire()
	defer unlock()

	var result []models.AccessibleFile
	for k := range st.keys {
		if k.userID != userID {
			continue
		}
		f := st.files[k.fileID]
		result = append(result, models.AccessibleFile{File: f, OwnerUsername: st.users[f.UserID].Username})
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].File, result[j].File
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return result, nil
}

func (r *filesRepo) ListShares(_ context.Context, ownerID string) (map[string][]string, error) {
	st, unlock := r.acquire()
	defer unlock()

	result := make(map[string][]string)
	for k := range st.keys {
		f := st.files[k.fileID]
		if f.UserID != ownerID || k.userID == ownerID {
			continue
		}
		result[k.fileID] = append(result[k.fileID], st.users[k.userID].Username)
	}
	for _, names := range result {
		slices.SortFunc(names, strings.Compare)
	}
	return result, nil
}

func (r *filesRepo) Delete(_ context.Context, fileID, ownerID string) error {
	st, unlock := r.acquire()
	defer unlock()

	f, ok := st.files[fileID]
	if !ok || f.UserID != ownerID {
		return common.ErrorNotFound
	}
	delete(st.files, fileID)
	for k := range st.keys {
		if k.fileID == fileID {
			delete(st.keys, k)
		}
	}
	return nil
}

type fileKeysRepo struct{ base }

func (r *fileKeysRepo) Create(_ context.Context, k *models.FileKey) (bool, error) {
	st, unlock := r.acquire()
	defer unlock()

	if _, ok := st.files[k.FileID]; !ok {
		return false, common.ErrorNotFound
	}
	if _, ok := st.users[k.UserID]; !ok {
		return false, common.ErrorNotFound
	}
	id := keyID{fileID: k.FileID, userID: k.UserID}
	if _, ok := st.keys[id]; ok {
		return false, nil
	}
	st.keys[id] = slices.Clone(k.EncryptedKey)
	return true, nil
}

func (r *fileKeysRepo) GetForUser(_ context.Context, fileID, userID string) (*models.FileKeyAccess, error) {
	st, unlock := r.acquire()
	defer unlock()

	env, ok := st.keys[keyID{fileID: fileID, userID: userID}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	f := st.files[fileID]
	return &models.FileKeyAccess{
		File:           f,
		OwnerPublicKey: slices.Clone(st.users[f.UserID].PublicKey),
		EncryptedKey:   slices.Clone(env),
	}, nil
}

func (r *fileKeysRepo) Exists(_ context.Context, fileID, userID string) (bool, error) {
	st, unlock := r.acquire()
	defer unlock()

	_, ok := st.keys[keyID{fileID: fileID, userID: userID}]
	return ok, nil
}

func (r *fileKeysRepo) DeleteByUsername(_ context.Context, fileID, username string) (int64, error) {
	st, unlock := r.acquire()
	defer unlock()

	userID, ok := st.byName[username]
	if !ok {
		return 0, nil
	}
	id := keyID{fileID: fileID, userID: userID}
	if _, ok := st.keys[id]; !ok {
		return 0, nil
	}
	delete(st.keys, id)
	return 1, nil
}
