package local

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/db"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL matches the hosted backend's default auth token lifetime.
const DefaultTokenTTL = 14 * 24 * time.Hour

const secretSettingKey = "jwt_secret"

var errInvalidToken = errors.New("invalid auth token")

type tokenClaims struct {
	RecordID     string `json:"id"`
	CollectionID string `json:"collectionId"`
	Type         string `json:"type"`
	jwt.RegisteredClaims
}

func (b *Backend) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.passwordCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func checkPasswordHash(hash, password string) bool {
	return hash != "" && bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return hex.EncodeToString(buf)
}

// loadOrCreateSecret returns the signing secret persisted in the settings
// table, creating one on first use.
func loadOrCreateSecret(ctx context.Context, uow db.UnitOfWork) ([]byte, error) {
	var secret string
	err := uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		v, err := loadSetting(ctx, tx, secretSettingKey)
		if err != nil {
			return err
		}
		if v == "" {
			v = randomHex(32)
			if err := saveSetting(ctx, tx, secretSettingKey, v); err != nil {
				return err
			}
		}
		secret = v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading token secret: %w", err)
	}
	return []byte(secret), nil
}

func (b *Backend) issueToken(rec *storedRecord) (string, error) {
	now := b.now()
	claims := tokenClaims{
		RecordID:     rec.ID,
		CollectionID: rec.Collection,
		Type:         "auth",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   rec.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(b.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(b.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// parseToken validates the signature and expiry and returns the record id.
func (b *Backend) parseToken(raw string) (string, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return b.secret, nil
	}, jwt.WithTimeFunc(b.now))
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}
	if claims.Type != "auth" || claims.CollectionID != UsersCollection || claims.RecordID == "" {
		return "", errInvalidToken
	}
	return claims.RecordID, nil
}

// caller resolves the user behind token. An empty, invalid or expired token,
// or one whose user no longer exists, yields a guest (nil).
func (b *Backend) caller(ctx context.Context, token string) *storedRecord {
	if token == "" {
		return nil
	}
	id, err := b.parseToken(token)
	if err != nil {
		return nil
	}
	rec, err := getRecord(ctx, b.uow.Reader(), UsersCollection, id)
	if err != nil {
		return nil
	}
	return rec
}

func authFailed() *backend.Error {
	return backend.NewError(http.StatusBadRequest, "Failed to authenticate.")
}

func (b *Backend) authWithPassword(ctx context.Context, collection, identity, password string) (backend.AuthResult, error) {
	if collection != UsersCollection {
		return backend.AuthResult{}, backend.ErrNotFound()
	}
	identity = strings.TrimSpace(identity)
	if identity == "" || password == "" {
		return backend.AuthResult{}, authFailed()
	}

	field := "username"
	if strings.Contains(identity, "@") {
		field, identity = "email", strings.ToLower(identity)
	}
	rec, err := findByField(ctx, b.uow.Reader(), UsersCollection, field, identity)
	if err != nil {
		return backend.AuthResult{}, err
	}
	if rec == nil || !checkPasswordHash(rec.PasswordHash, password) {
		return backend.AuthResult{}, authFailed()
	}
	return b.authResult(rec)
}

func (b *Backend) authResult(rec *storedRecord) (backend.AuthResult, error) {
	token, err := b.issueToken(rec)
	if err != nil {
		return backend.AuthResult{}, err
	}
	return backend.AuthResult{Token: token, Record: present(rec, rec)}, nil
}

// present shapes a stored record for a caller. A user's email is only
// visible to the user, to admins, or when the user made it public.
func present(rec *storedRecord, caller *storedRecord) backend.Record {
	out := rec.toRecord()
	if rec.Collection != UsersCollection {
		return out
	}
	visible, _ := rec.Data["emailVisibility"].(bool)
	if !visible && !isSelf(caller, rec.ID) && !isAdmin(caller) {
		out["email"] = ""
	}
	return out
}
