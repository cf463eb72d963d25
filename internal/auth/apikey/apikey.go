// Package apikey issues and validates API keys stored in PostgreSQL. Raw
// keys are generated with crypto/rand and only their SHA-256 digest is
// stored. Each key carries the catalog role its holder acts with.
package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Document-Library-Platform/pkg/postgres"
)

var (
	ErrInvalidKey = errors.New("invalid api key")
	ErrExpiredKey = errors.New("api key expired")
)

// KeyInfo holds metadata about a key. Name doubles as the holder's identity
// for document attribution and bookmarks.
type KeyInfo struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Role      catalog.Role `json:"role"`
	RateLimit int          `json:"rate_limit"`
	IsActive  bool         `json:"is_active"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
}

// Actor is the catalog identity the key authenticates.
func (k *KeyInfo) Actor() catalog.Actor {
	return catalog.Actor{Name: k.Name, Role: k.Role}
}

type Validator struct {
	db     postgres.Querier
	logger *slog.Logger
}

func NewValidator(db postgres.Querier) *Validator {
	return &Validator{
		db:     db,
		logger: slog.Default().With("component", "apikey-validator"),
	}
}

const keyColumns = `id, name, role, rate_limit, is_active, created_at, expires_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanKey(s scanner) (KeyInfo, error) {
	var (
		k         KeyInfo
		expiresAt sql.NullTime
	)
	if err := s.Scan(&k.ID, &k.Name, &k.Role, &k.RateLimit, &k.IsActive, &k.CreatedAt, &expiresAt); err != nil {
		return k, err
	}
	if expiresAt.Valid {
		k.ExpiresAt = &expiresAt.Time
	}
	return k, nil
}

// Validate returns the active key matching rawKey, or ErrInvalidKey /
// ErrExpiredKey.
func (v *Validator) Validate(ctx context.Context, rawKey string) (*KeyInfo, error) {
	info, err := scanKey(v.db.QueryRowContext(ctx,
		`SELECT `+keyColumns+` FROM api_keys WHERE key_hash = $1 AND is_active = true`,
		HashKey(rawKey),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, fmt.Errorf("querying api key: %w", err)
	}
	if info.ExpiresAt != nil && info.ExpiresAt.Before(time.Now()) {
		return nil, ErrExpiredKey
	}
	return &info, nil
}

// CreateKey stores a new key and returns the raw key. The raw key is
// returned only once and cannot be retrieved again.
func (v *Validator) CreateKey(ctx context.Context, name string, role catalog.Role, rateLimit int, expiresAt *time.Time) (string, error) {
	if name == "" {
		return "", fmt.Errorf("key name is required")
	}
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", role)
	}
	rawKey := generateRawKey()

	var expiry sql.NullTime
	if expiresAt != nil {
		expiry = sql.NullTime{Time: *expiresAt, Valid: true}
	}
	_, err := v.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, name, role, rate_limit, expires_at) VALUES ($1, $2, $3, $4, $5)`,
		HashKey(rawKey), name, role, rateLimit, expiry,
	)
	if err != nil {
		return "", fmt.Errorf("creating api key: %w", err)
	}
	v.logger.Info("api key created", "name", name, "role", role, "rate_limit", rateLimit)
	return rawKey, nil
}

// RevokeKey deactivates a key by its raw value.
func (v *Validator) RevokeKey(ctx context.Context, rawKey string) error {
	return v.revoke(ctx, `UPDATE api_keys SET is_active = false WHERE key_hash = $1 AND is_active`, HashKey(rawKey))
}

// RevokeID deactivates a key by id, for operators who no longer hold the
// raw key.
func (v *Validator) RevokeID(ctx context.Context, id int64) error {
	return v.revoke(ctx, `UPDATE api_keys SET is_active = false WHERE id = $1 AND is_active`, id)
}

func (v *Validator) revoke(ctx context.Context, query string, arg any) error {
	result, err := v.db.ExecContext(ctx, query, arg)
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrInvalidKey
	}
	v.logger.Info("api key revoked")
	return nil
}

// ListKeys returns every active key without its hash.
func (v *Validator) ListKeys(ctx context.Context) ([]KeyInfo, error) {
	rows, err := v.db.QueryContext(ctx,
		`SELECT `+keyColumns+` FROM api_keys WHERE is_active = true ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	defer rows.Close()

	var keys []KeyInfo
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning api key row: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// HashKey returns the SHA-256 hex digest of a raw API key.
func HashKey(raw string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(raw)))
}

func generateRawKey() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
