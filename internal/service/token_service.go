package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-enroll-api/internal/models"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
)

type tokenStore interface {
	Create(ctx context.Context, token *models.ConfirmationToken) error
	FindByIDAndKind(ctx context.Context, id string, kind models.TokenKind) (*models.ConfirmationToken, error)
	TryConfirm(ctx context.Context, id string, kind models.TokenKind, now time.Time) (bool, error)
	DeleteByUser(ctx context.Context, userID string) error
}

// TokenService issues and confirms single-use confirmation tokens. One
// instance serves both kinds; the kind argument keeps the identity namespaces
// apart.
type TokenService struct {
	repo   tokenStore
	logger *zap.Logger
	now    func() time.Time
}

// NewTokenService constructs TokenService.
func NewTokenService(repo tokenStore, logger *zap.Logger) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Issue creates a fresh token for the user with the given lifetime.
func (s *TokenService) Issue(ctx context.Context, userID string, kind models.TokenKind, ttl time.Duration) (*models.ConfirmationToken, error) {
	if ttl <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "token ttl must be positive")
	}

	issuedAt := s.now()
	token := &models.ConfirmationToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(ttl),
	}

	if err := s.repo.Create(ctx, token); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist token")
	}

	s.logger.Info("token issued",
		zap.String("kind", string(kind)),
		zap.String("user_id", userID),
		zap.Time("expires_at", token.ExpiresAt),
	)
	return token, nil
}

// Lookup resolves a token within its kind namespace.
func (s *TokenService) Lookup(ctx context.Context, id string, kind models.TokenKind) (*models.ConfirmationToken, error) {
	token, err := s.repo.FindByIDAndKind(ctx, id, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "token not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load token")
	}
	return token, nil
}

// Confirm transitions a token from issued to confirmed exactly once. The
// storage-level compare-and-swap decides races; losers receive the precise
// reason instead of a silent success.
func (s *TokenService) Confirm(ctx context.Context, id string, kind models.TokenKind) (*models.ConfirmationToken, error) {
	now := s.now()

	ok, err := s.repo.TryConfirm(ctx, id, kind, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm token")
	}

	token, lookupErr := s.repo.FindByIDAndKind(ctx, id, kind)
	if lookupErr != nil {
		if errors.Is(lookupErr, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "token not found")
		}
		return nil, appErrors.Wrap(lookupErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load token")
	}

	if !ok {
		if token.Confirmed() {
			return nil, appErrors.AlreadyConfirmedAt("token", *token.ConfirmedAt)
		}
		return nil, appErrors.ExpiredAt("token", token.ExpiresAt)
	}

	s.logger.Info("token confirmed",
		zap.String("kind", string(kind)),
		zap.String("user_id", token.UserID),
	)
	return token, nil
}

// DeleteAllForUser removes every token owned by the user; deleting a user with
// no tokens is not an error.
func (s *TokenService) DeleteAllForUser(ctx context.Context, userID string) error {
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user tokens")
	}
	return nil
}
