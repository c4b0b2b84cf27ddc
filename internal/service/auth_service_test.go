package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/course-enroll-api/internal/models"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
)

type mockUserAccountStore struct {
	users     map[string]*models.User
	createErr error
}

func newMockUserAccountStore() *mockUserAccountStore {
	return &mockUserAccountStore{users: make(map[string]*models.User)}
}

func (m *mockUserAccountStore) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockUserAccountStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserAccountStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserAccountStore) Activate(ctx context.Context, id string, ts time.Time) error {
	if user, ok := m.users[id]; ok {
		user.Active = true
		user.UpdatedAt = ts
	}
	return nil
}

func (m *mockUserAccountStore) UpdateRole(ctx context.Context, id string, role models.UserRole, ts time.Time) error {
	if user, ok := m.users[id]; ok {
		user.Role = role
		user.UpdatedAt = ts
	}
	return nil
}

func newAuthFixture() (*AuthService, *mockUserAccountStore, *mockTokenStore) {
	users := newMockUserAccountStore()
	tokenStore := newMockTokenStore()
	tokens := NewTokenService(tokenStore, zap.NewNop())
	svc := NewAuthService(users, tokens, nil, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "course-enroll-api",
		RegistrationTTL:   24 * time.Hour,
		ElevationTTL:      time.Hour,
	})
	return svc, users, tokenStore
}

func TestAuthServiceRegisterAndConfirmEmail(t *testing.T) {
	svc, users, _ := newAuthFixture()

	res, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "ana@example.com",
		Password: "password123",
		FullName: "Ana Souza",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ConfirmationToken)
	assert.Equal(t, models.RoleStudent, res.User.Role)

	created, err := users.FindByID(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.False(t, created.Active)
	assert.NotEqual(t, "password123", created.PasswordHash)

	require.NoError(t, svc.ConfirmEmail(context.Background(), res.ConfirmationToken))

	activated, err := users.FindByID(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.True(t, activated.Active)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthFixture()

	payload := models.RegisterRequest{Email: "ana@example.com", Password: "password123", FullName: "Ana Souza"}
	_, err := svc.Register(context.Background(), payload)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), payload)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterInvalidPayload(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "not-an-email",
		Password: "short",
		FullName: "",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceConfirmEmailTwice(t *testing.T) {
	svc, _, _ := newAuthFixture()

	res, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "ana@example.com", Password: "password123", FullName: "Ana Souza",
	})
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmEmail(context.Background(), res.ConfirmationToken))

	err = svc.ConfirmEmail(context.Background(), res.ConfirmationToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyConfirmed.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceElevationFlow(t *testing.T) {
	svc, users, _ := newAuthFixture()

	res, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "ana@example.com", Password: "password123", FullName: "Ana Souza",
	})
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmEmail(context.Background(), res.ConfirmationToken))

	token, err := svc.RequestElevation(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TokenKindElevation, token.Kind)

	// A registration confirmation with an elevation token must not work.
	err = svc.ConfirmEmail(context.Background(), token.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.ConfirmElevation(context.Background(), token.ID))

	promoted, err := users.FindByID(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)

	// Already an admin: a second elevation request is refused.
	_, err = svc.RequestElevation(context.Background(), res.User.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRequestElevationUnknownUser(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, err := svc.RequestElevation(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	svc, users, _ := newAuthFixture()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	users.users["user-1"] = &models.User{
		ID: "user-1", Email: "ana@example.com", PasswordHash: string(hash),
		FullName: "Ana Souza", Role: models.RoleStudent, Active: true,
	}

	res, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "ana@example.com", Password: "password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, "user-1", res.User.ID)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, users, _ := newAuthFixture()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	users.users["user-1"] = &models.User{
		ID: "user-1", Email: "ana@example.com", PasswordHash: string(hash), Active: true,
	}

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "ana@example.com", Password: "wrongpassword",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	svc, users, _ := newAuthFixture()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	users.users["user-1"] = &models.User{
		ID: "user-1", Email: "ana@example.com", PasswordHash: string(hash), Active: false,
	}

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "ana@example.com", Password: "password123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, err := svc.ValidateToken("not-a-jwt")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
