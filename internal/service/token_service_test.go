package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-enroll-api/internal/models"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
)

type mockTokenStore struct {
	tokens     map[string]*models.ConfirmationToken
	createErr  error
	findErr    error
	confirmErr error
	deleted    []string
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{tokens: make(map[string]*models.ConfirmationToken)}
}

func (m *mockTokenStore) key(id string, kind models.TokenKind) string {
	return id + "/" + string(kind)
}

func (m *mockTokenStore) Create(ctx context.Context, token *models.ConfirmationToken) error {
	if m.createErr != nil {
		return m.createErr
	}
	copied := *token
	m.tokens[m.key(token.ID, token.Kind)] = &copied
	return nil
}

func (m *mockTokenStore) FindByIDAndKind(ctx context.Context, id string, kind models.TokenKind) (*models.ConfirmationToken, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	token, ok := m.tokens[m.key(id, kind)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *token
	return &copied, nil
}

func (m *mockTokenStore) TryConfirm(ctx context.Context, id string, kind models.TokenKind, now time.Time) (bool, error) {
	if m.confirmErr != nil {
		return false, m.confirmErr
	}
	token, ok := m.tokens[m.key(id, kind)]
	if !ok || token.ConfirmedAt != nil || !now.Before(token.ExpiresAt) {
		return false, nil
	}
	confirmedAt := now
	token.ConfirmedAt = &confirmedAt
	return true, nil
}

func (m *mockTokenStore) DeleteByUser(ctx context.Context, userID string) error {
	m.deleted = append(m.deleted, userID)
	for key, token := range m.tokens {
		if token.UserID == userID {
			delete(m.tokens, key)
		}
	}
	return nil
}

func TestTokenServiceIssueAndConfirm(t *testing.T) {
	store := newMockTokenStore()
	svc := NewTokenService(store, zap.NewNop())

	issued, err := svc.Issue(context.Background(), "user-1", models.TokenKindRegistration, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)
	assert.Equal(t, "user-1", issued.UserID)
	assert.Nil(t, issued.ConfirmedAt)
	assert.Equal(t, issued.IssuedAt.Add(time.Hour), issued.ExpiresAt)

	confirmed, err := svc.Confirm(context.Background(), issued.ID, models.TokenKindRegistration)
	require.NoError(t, err)
	require.NotNil(t, confirmed.ConfirmedAt)
	assert.Equal(t, "user-1", confirmed.UserID)
}

func TestTokenServiceIssueRejectsNonPositiveTTL(t *testing.T) {
	svc := NewTokenService(newMockTokenStore(), zap.NewNop())

	_, err := svc.Issue(context.Background(), "user-1", models.TokenKindRegistration, 0)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTokenServiceConfirmTwiceReportsAlreadyConfirmed(t *testing.T) {
	store := newMockTokenStore()
	svc := NewTokenService(store, zap.NewNop())

	issued, err := svc.Issue(context.Background(), "user-1", models.TokenKindElevation, time.Hour)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), issued.ID, models.TokenKindElevation)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), issued.ID, models.TokenKindElevation)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrAlreadyConfirmed.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "already confirmed at")
}

func TestTokenServiceConfirmExpired(t *testing.T) {
	store := newMockTokenStore()
	svc := NewTokenService(store, zap.NewNop())

	issued, err := svc.Issue(context.Background(), "user-1", models.TokenKindRegistration, time.Minute)
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.ExpiresAt.Add(time.Second) }

	_, err = svc.Confirm(context.Background(), issued.ID, models.TokenKindRegistration)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrTokenExpired.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "expired at")
}

func TestTokenServiceConfirmAtExactExpiry(t *testing.T) {
	store := newMockTokenStore()
	svc := NewTokenService(store, zap.NewNop())

	issued, err := svc.Issue(context.Background(), "user-1", models.TokenKindRegistration, time.Minute)
	require.NoError(t, err)

	// The expiry instant itself is already too late.
	svc.now = func() time.Time { return issued.ExpiresAt }

	_, err = svc.Confirm(context.Background(), issued.ID, models.TokenKindRegistration)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTokenExpired.Code, appErrors.FromError(err).Code)
}

func TestTokenServiceConfirmWrongKind(t *testing.T) {
	store := newMockTokenStore()
	svc := NewTokenService(store, zap.NewNop())

	issued, err := svc.Issue(context.Background(), "user-1", models.TokenKindRegistration, time.Hour)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), issued.ID, models.TokenKindElevation)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	// The registration token is untouched by the failed elevation attempt.
	token, err := svc.Lookup(context.Background(), issued.ID, models.TokenKindRegistration)
	require.NoError(t, err)
	assert.Nil(t, token.ConfirmedAt)
}

func TestTokenServiceConfirmUnknownToken(t *testing.T) {
	svc := NewTokenService(newMockTokenStore(), zap.NewNop())

	_, err := svc.Confirm(context.Background(), "missing", models.TokenKindRegistration)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTokenServiceConfirmStoreFailure(t *testing.T) {
	store := newMockTokenStore()
	store.confirmErr = errors.New("db down")
	svc := NewTokenService(store, zap.NewNop())

	_, err := svc.Confirm(context.Background(), "any", models.TokenKindRegistration)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestTokenServiceDeleteAllForUser(t *testing.T) {
	store := newMockTokenStore()
	svc := NewTokenService(store, zap.NewNop())

	issued, err := svc.Issue(context.Background(), "user-1", models.TokenKindRegistration, time.Hour)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAllForUser(context.Background(), "user-1"))
	assert.Equal(t, []string{"user-1"}, store.deleted)

	_, err = svc.Lookup(context.Background(), issued.ID, models.TokenKindRegistration)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	// Deleting again is a no-op, not an error.
	require.NoError(t, svc.DeleteAllForUser(context.Background(), "user-1"))
}
