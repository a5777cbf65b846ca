// Package services contains server-side business logic. This file implements
// UserService: sign-up, login, session validation, logout and the password
// change and reset flows that rewrap the user's private key.
package services

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/cryptox"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/auth"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
)

// sessionIDBytes is the entropy of a session id (64 hex characters).
const sessionIDBytes = 32

// UserService provides authentication-related operations.
type UserService struct {
	db              dbx.DB
	repomanager     repomanager.RepositoryManager
	kdf             *cryptox.KeyDerivation
	tokens          *auth.TokenCodec
	sessionValidity time.Duration
	logger          logging.Logger
	now             func() time.Time

	// decoy is verified against when the username is unknown so that both
	// failure paths cost one password hash.
	decoy []byte
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db dbx.DB, m repomanager.RepositoryManager, kdf *cryptox.KeyDerivation,
	tokens *auth.TokenCodec, cfg *config.Config, logger logging.Logger) (*UserService, error) {
	decoy, err := kdf.HashPassword(common.GenerateRandByteArray(32))
	if err != nil {
		return nil, fmt.Errorf("decoy verifier: %w", err)
	}
	return &UserService{
		db:              db,
		repomanager:     m,
		kdf:             kdf,
		tokens:          tokens,
		sessionValidity: cfg.SessionValidityDuration,
		logger:          logging.ForModule(logger, "users"),
		now:             time.Now,
		decoy:           decoy,
	}, nil
}

func validateNewPassword(password, confirm string) error {
	if len(password) < common.MinPasswordLength {
		return common.Validation(msgPasswordTooShort)
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(confirm)) != 1 {
		return common.Validation(msgPasswordMismatch)
	}
	return nil
}

// CreateUser registers username, generating and wrapping a fresh key pair,
// and logs the new user in. It returns a session token.
func (s *UserService) CreateUser(ctx context.Context, username, password, confirm string) (string, error) {
	if username == "" || password == "" || confirm == "" {
		return "", common.Validation(msgSignupRequired)
	}
	if err := validateNewPassword(password, confirm); err != nil {
		return "", err
	}

	pw := []byte(password)
	defer common.WipeByteArray(pw)

	verifier, err := s.kdf.HashPassword(pw)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	kp, err := cryptox.GenerateKeyPair()
	if err != nil {
		return "", fmt.Errorf("error generating key pair: %w", err)
	}
	defer cryptox.Wipe(kp.Private)

	encPriv, err := s.kdf.SealPrivateKey(pw, verifier, kp.Private)
	if err != nil {
		return "", fmt.Errorf("error wrapping private key: %w", err)
	}

	var token string
	err = s.db.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).Create(ctx, &models.User{
			Username:            username,
			PasswordVerifier:    verifier,
			PublicKey:           kp.Public[:],
			EncryptedPrivateKey: encPriv,
		})
		if err != nil {
			if errors.Is(err, common.ErrorConflict) {
				return common.Conflict(msgUsernameTaken)
			}
			return fmt.Errorf("error creating user: %w", err)
		}
		token, err = s.startSession(ctx, tx, user.ID, kp.Private)
		return err
	})
	if err != nil {
		return "", err
	}

	s.logger.Info(ctx, "user created", "username", username)
	return token, nil
}

// Login verifies the password, unwraps the private key and opens a session.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", common.Validation(msgCredentialsRequired)
	}

	pw := []byte(password)
	defer common.WipeByteArray(pw)

	user, err := s.repomanager.Users(s.db.Conn()).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = s.kdf.VerifyPassword(pw, s.decoy)
			return "", common.Unauthorized(msgBadCredentials)
		}
		return "", fmt.Errorf("error loading user: %w", err)
	}

	ok, err := s.kdf.VerifyPassword(pw, user.PasswordVerifier)
	if err != nil {
		s.logger.Error(ctx, "password verifier unusable", "user_id", user.ID, "error", err)
		return "", common.Unauthorized(msgBadCredentials)
	}
	if !ok {
		return "", common.Unauthorized(msgBadCredentials)
	}

	priv, err := s.kdf.OpenPrivateKey(pw, user.PasswordVerifier, user.EncryptedPrivateKey)
	if err != nil {
		s.logger.Error(ctx, "private key unwrap failed", "user_id", user.ID, "error", err)
		return "", common.Unauthorized(msgBadCredentials)
	}
	defer cryptox.Wipe(priv)

	return s.startSession(ctx, s.db.Conn(), user.ID, priv)
}

func (s *UserService) startSession(ctx context.Context, db dbx.DBTX, userID string, priv *[cryptox.KeySize]byte) (string, error) {
	sid, err := common.MakeRandHexString(sessionIDBytes)
	if err != nil {
		return "", fmt.Errorf("error generating session id: %w", err)
	}

	now := s.now()
	session := &models.Session{ID: sid, UserID: userID, ExpiresAt: now.Add(s.sessionValidity)}
	if err := s.repomanager.Sessions(db).Create(ctx, session); err != nil {
		return "", fmt.Errorf("error creating session: %w", err)
	}

	payload := auth.SessionPayload{SessionID: sid, IssuedAt: now, ExpiresAt: session.ExpiresAt, PrivateKey: *priv}
	defer common.WipeByteArray(payload.PrivateKey[:])

	token, err := s.tokens.Mint(payload)
	if err != nil {
		return "", fmt.Errorf("error minting token: %w", err)
	}
	return token, nil
}

// ValidateSession turns a bearer token into the caller's Identity. The
// session row must exist and be unexpired.
func (s *UserService) ValidateSession(ctx context.Context, token string) (*models.Identity, error) {
	payload, err := s.tokens.Parse(token)
	if err != nil {
		if auth.IsInvalidToken(err) {
			return nil, common.Unauthorized(msgAuthFailed)
		}
		return nil, fmt.Errorf("error parsing token: %w", err)
	}
	defer common.WipeByteArray(payload.PrivateKey[:])

	su, err := s.repomanager.Sessions(s.db.Conn()).FindActive(ctx, payload.SessionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthorized(msgAuthFailed)
		}
		return nil, fmt.Errorf("error loading session: %w", err)
	}

	priv := payload.PrivateKey
	return &models.Identity{
		ID:         su.UserID,
		Username:   su.Username,
		SessionID:  su.SessionID,
		PrivateKey: &priv,
	}, nil
}

// Logout deletes the caller's session row; its token stops validating.
func (s *UserService) Logout(ctx context.Context, id *models.Identity) error {
	if err := s.repomanager.Sessions(s.db.Conn()).Delete(ctx, id.SessionID); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

// ChangePassword rewraps the caller's private key under a new password.
// The update is bound to the authenticated user's id and runs in one
// transaction with the current-password check.
func (s *UserService) ChangePassword(ctx context.Context, id *models.Identity, current, password, confirm string) error {
	if current == "" || password == "" || confirm == "" {
		return common.Validation(msgChangeRequired)
	}
	if err := validateNewPassword(password, confirm); err != nil {
		return err
	}

	pub, err := id.PublicKey()
	if err != nil {
		return fmt.Errorf("error deriving public key: %w", err)
	}
	verifier, encPriv, err := s.sealCredentials(password, id.PrivateKey)
	if err != nil {
		return err
	}

	cur := []byte(current)
	defer common.WipeByteArray(cur)

	return s.db.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)
		user, err := users.GetByIDForUpdate(ctx, id.ID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.Unauthorized(msgAuthFailed)
			}
			return fmt.Errorf("error loading user: %w", err)
		}

		ok, err := s.kdf.VerifyPassword(cur, user.PasswordVerifier)
		if err != nil {
			return fmt.Errorf("error verifying password: %w", err)
		}
		if !ok {
			return common.Validation(msgCurrentPassword)
		}

		if subtle.ConstantTimeCompare(pub[:], user.PublicKey) != 1 {
			s.logger.Error(ctx, "session key does not match stored public key", "user_id", id.ID)
			return common.Integrity(msgPasswordUnchanged, nil)
		}

		if err := users.UpdateCredentials(ctx, user.ID, verifier, encPriv); err != nil {
			return fmt.Errorf("error updating credentials: %w", err)
		}
		return nil
	})
}

// ResetPassword lets a user who lost their password set a new one by
// presenting their private key (as exported by RecoveryKey). Unknown
// usernames and wrong keys are reported identically.
func (s *UserService) ResetPassword(ctx context.Context, username, keyB64, password, confirm string) error {
	if username == "" || keyB64 == "" || password == "" || confirm == "" {
		return common.Validation(msgResetRequired)
	}
	if err := validateNewPassword(password, confirm); err != nil {
		return err
	}

	raw, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return common.Validation(msgKeyMismatch)
	}
	defer common.WipeByteArray(raw)
	priv, err := cryptox.KeyFromBytes(raw)
	if err != nil {
		return common.Validation(msgKeyMismatch)
	}
	defer cryptox.Wipe(priv)

	user, err := s.repomanager.Users(s.db.Conn()).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.Validation(msgKeyMismatch)
		}
		return fmt.Errorf("error loading user: %w", err)
	}

	pub, err := cryptox.PublicKeyOf(priv)
	if err != nil {
		return common.Validation(msgKeyMismatch)
	}
	if subtle.ConstantTimeCompare(pub[:], user.PublicKey) != 1 {
		return common.Validation(msgKeyMismatch)
	}

	verifier, encPriv, err := s.sealCredentials(password, priv)
	if err != nil {
		return err
	}
	if err := s.repomanager.Users(s.db.Conn()).UpdateCredentials(ctx, user.ID, verifier, encPriv); err != nil {
		return fmt.Errorf("error updating credentials: %w", err)
	}
	s.logger.Info(ctx, "password reset", "user_id", user.ID)
	return nil
}

// sealCredentials returns a fresh verifier for password and priv sealed
// under it.
func (s *UserService) sealCredentials(password string, priv *[cryptox.KeySize]byte) (verifier, encPriv []byte, err error) {
	pw := []byte(password)
	defer common.WipeByteArray(pw)

	verifier, err = s.kdf.HashPassword(pw)
	if err != nil {
		return nil, nil, fmt.Errorf("error hashing password: %w", err)
	}
	encPriv, err = s.kdf.SealPrivateKey(pw, verifier, priv)
	if err != nil {
		return nil, nil, fmt.Errorf("error wrapping private key: %w", err)
	}
	return verifier, encPriv, nil
}

// RecoveryKey exports the caller's private key, base64 encoded. It is the
// only way to recover the account after a forgotten password.
func (s *UserService) RecoveryKey(_ context.Context, id *models.Identity) (string, error) {
	if id == nil || id.PrivateKey == nil {
		return "", common.Unauthorized(msgAuthFailed)
	}
	return base64.StdEncoding.EncodeToString(id.PrivateKey[:]), nil
}

// PurgeSessions removes expired session rows.
func (s *UserService) PurgeSessions(ctx context.Context) (int64, error) {
	n, err := s.repomanager.Sessions(s.db.Conn()).DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("error purging sessions: %w", err)
	}
	return n, nil
}
