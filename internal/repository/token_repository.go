package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-enroll-api/internal/models"
)

// TokenRepository persists confirmation tokens. Both token kinds share one
// table; every lookup is keyed on (id, kind) so the namespaces stay disjoint.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository constructs the repository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create persists a freshly issued token.
func (r *TokenRepository) Create(ctx context.Context, token *models.ConfirmationToken) error {
	const query = `INSERT INTO confirmation_tokens (id, user_id, kind, issued_at, expires_at, confirmed_at)
        VALUES (:id, :user_id, :kind, :issued_at, :expires_at, :confirmed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create confirmation token: %w", err)
	}
	return nil
}

// FindByIDAndKind returns a token by identity within its kind namespace.
func (r *TokenRepository) FindByIDAndKind(ctx context.Context, id string, kind models.TokenKind) (*models.ConfirmationToken, error) {
	const query = `SELECT id, user_id, kind, issued_at, expires_at, confirmed_at
        FROM confirmation_tokens WHERE id = $1 AND kind = $2 LIMIT 1`
	var token models.ConfirmationToken
	if err := r.db.GetContext(ctx, &token, query, id, kind); err != nil {
		return nil, err
	}
	return &token, nil
}

// TryConfirm atomically flips confirmed_at from NULL for a live token. The
// single UPDATE is the compare-and-swap: when several callers race on the same
// token, exactly one sees a row count of 1. A false return says nothing about
// why; the caller re-reads the token to distinguish missing, already confirmed
// and expired.
func (r *TokenRepository) TryConfirm(ctx context.Context, id string, kind models.TokenKind, now time.Time) (bool, error) {
	const query = `UPDATE confirmation_tokens SET confirmed_at = $3
        WHERE id = $1 AND kind = $2 AND confirmed_at IS NULL AND expires_at > $3`
	res, err := r.db.ExecContext(ctx, query, id, kind, now)
	if err != nil {
		return false, fmt.Errorf("confirm token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("confirm token rows: %w", err)
	}
	return affected == 1, nil
}

// DeleteByUser removes every token owned by the user across all kinds.
func (r *TokenRepository) DeleteByUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM confirmation_tokens WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete user tokens: %w", err)
	}
	return nil
}
