package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/course-enroll-api/internal/models"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
)

type authUserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Activate(ctx context.Context, id string, ts time.Time) error
	UpdateRole(ctx context.Context, id string, role models.UserRole, ts time.Time) error
}

type confirmationTokens interface {
	Issue(ctx context.Context, userID string, kind models.TokenKind, ttl time.Duration) (*models.ConfirmationToken, error)
	Confirm(ctx context.Context, id string, kind models.TokenKind) (*models.ConfirmationToken, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	RegistrationTTL   time.Duration
	ElevationTTL      time.Duration
}

// AuthService provides registration, email confirmation, login and the
// admin-elevation flow. The two confirmation flows ride the same token state
// machine under different kinds.
type AuthService struct {
	users     authUserStore
	tokens    confirmationTokens
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserStore, tokens confirmationTokens, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{users: users, tokens: tokens, metrics: metrics, validator: validate, logger: logger, config: config}
}

// Register creates an inactive account and issues its registration token. The
// caller embeds the token into the confirmation link it delivers to the user.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         models.RoleStudent,
		Active:       false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account")
	}

	token, err := s.tokens.Issue(ctx, user.ID, models.TokenKindRegistration, s.config.RegistrationTTL)
	if err != nil {
		return nil, err
	}

	return &models.RegisterResponse{
		User:              userInfo(user),
		ConfirmationToken: token.ID,
		TokenExpiresAt:    token.ExpiresAt,
	}, nil
}

// ConfirmEmail redeems a registration token and activates the account.
func (s *AuthService) ConfirmEmail(ctx context.Context, tokenID string) error {
	token, err := s.tokens.Confirm(ctx, tokenID, models.TokenKindRegistration)
	s.observeConfirmation(models.TokenKindRegistration, err)
	if err != nil {
		return err
	}

	if err := s.users.Activate(ctx, token.UserID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate account")
	}

	s.logger.Info("account activated", zap.String("user_id", token.UserID))
	return nil
}

// RequestElevation issues an admin-elevation token for the user. Delivering
// the confirmation link to an approver is the caller's concern.
func (s *AuthService) RequestElevation(ctx context.Context, userID string) (*models.ConfirmationToken, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Role == models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user is already an admin")
	}

	return s.tokens.Issue(ctx, user.ID, models.TokenKindElevation, s.config.ElevationTTL)
}

// ConfirmElevation redeems an elevation token and promotes the user to admin.
func (s *AuthService) ConfirmElevation(ctx context.Context, tokenID string) error {
	token, err := s.tokens.Confirm(ctx, tokenID, models.TokenKindElevation)
	s.observeConfirmation(models.TokenKindElevation, err)
	if err != nil {
		return err
	}

	if err := s.users.UpdateRole(ctx, token.UserID, models.RoleAdmin, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote user")
	}

	s.logger.Info("user promoted to admin", zap.String("user_id", token.UserID))
	return nil
}

// Login authenticates a user and returns an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	accessToken, issuedAt, err := s.generateAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		User:        userInfo(user),
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}

func (s *AuthService) observeConfirmation(kind models.TokenKind, err error) {
	if s.metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = appErrors.FromError(err).Code
	}
	s.metrics.ObserveTokenConfirmation(string(kind), result)
}

func userInfo(user *models.User) models.UserInfo {
	return models.UserInfo{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
	}
}
