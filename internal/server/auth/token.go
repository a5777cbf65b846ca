// Package auth mints and parses session tokens.
//
// A token is an HS256 JWT whose claims carry the session id and the
// caller's private key. The compact JWT is sealed with secretbox so the key
// is not readable in transit logs, then base64url-encoded. Signing and
// sealing keys are derived from a single server secret.
package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

const (
	signInfo = "filevault-token-sign"
	sealInfo = "filevault-token-seal"
)

// SessionPayload is everything a token carries.
type SessionPayload struct {
	SessionID  string
	Issuer     string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	PrivateKey [cryptox.KeySize]byte
}

// Claims is the JWT body: registered claims plus the base64 private key.
type Claims struct {
	jwt.RegisteredClaims
	Key string `json:"key"`
}

// TokenCodec mints and parses session tokens for one issuer.
type TokenCodec struct {
	signKey *[cryptox.KeySize]byte
	sealKey *[cryptox.KeySize]byte
	issuer  string
	now     func() time.Time
}

// NewTokenCodec derives the signing and sealing keys from secret.
func NewTokenCodec(secret []byte, issuer string) (*TokenCodec, error) {
	signKey, err := cryptox.DeriveSubkey(secret, signInfo)
	if err != nil {
		return nil, fmt.Errorf("token sign key: %w", err)
	}
	sealKey, err := cryptox.DeriveSubkey(secret, sealInfo)
	if err != nil {
		return nil, fmt.Errorf("token seal key: %w", err)
	}
	return &TokenCodec{signKey: signKey, sealKey: sealKey, issuer: issuer, now: time.Now}, nil
}

// Issuer returns the issuer stamped into minted tokens.
func (c *TokenCodec) Issuer() string {
	return c.issuer
}

// Mint signs and seals p. Issuer and IssuedAt are filled in when empty.
func (c *TokenCodec) Mint(p SessionPayload) (string, error) {
	if p.Issuer == "" {
		p.Issuer = c.issuer
	}
	if p.IssuedAt.IsZero() {
		p.IssuedAt = c.now()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        p.SessionID,
			Issuer:    p.Issuer,
			IssuedAt:  jwt.NewNumericDate(p.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
		},
		Key: base64.StdEncoding.EncodeToString(p.PrivateKey[:]),
	})

	signed, err := token.SignedString(c.signKey[:])
	if err != nil {
		return "", err
	}

	sealed, err := cryptox.Seal([]byte(signed), c.sealKey)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Parse reverses Mint. Every failure is reported as common.ErrInvalidToken.
func (c *TokenCodec) Parse(tokenString string) (*SessionPayload, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(tokenString)
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	signed, err := cryptox.Open(sealed, c.sealKey)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(string(signed), claims, func(t *jwt.Token) (interface{}, error) {
		return c.signKey[:], nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return nil, common.ErrInvalidToken
	}
	if claims.ID == "" {
		return nil, common.ErrInvalidToken
	}

	raw, err := base64.StdEncoding.DecodeString(claims.Key)
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	key, err := cryptox.KeyFromBytes(raw)
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	common.WipeByteArray(raw)

	p := &SessionPayload{
		SessionID:  claims.ID,
		Issuer:     claims.Issuer,
		PrivateKey: *key,
	}
	cryptox.Wipe(key)
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	p.ExpiresAt = claims.ExpiresAt.Time
	return p, nil
}

// IsInvalidToken reports whether err came from Parse.
func IsInvalidToken(err error) bool {
	return errors.Is(err, common.ErrInvalidToken)
}
