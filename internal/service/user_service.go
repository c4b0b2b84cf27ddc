package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-enroll-api/internal/models"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
)

type userStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListCourseIDs(ctx context.Context, userID string) ([]string, error)
	Delete(ctx context.Context, id string) error
}

type userDataCleaner interface {
	DeleteAllForUser(ctx context.Context, userID string) error
}

// UserService exposes account reads and the account deletion cascade.
type UserService struct {
	users   userStore
	tokens  userDataCleaner
	signups userDataCleaner
	logger  *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(users userStore, tokens, signups userDataCleaner, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, tokens: tokens, signups: signups, logger: logger}
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	return user, nil
}

// ListCourses returns the ids of the courses a user is enrolled in.
func (s *UserService) ListCourses(ctx context.Context, userID string) ([]string, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	ids, err := s.users.ListCourseIDs(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrolled courses")
	}
	return ids, nil
}

// Delete removes a user and all dependent data: confirmation tokens, signup
// requests and the roster rows go first, then the account itself.
func (s *UserService) Delete(ctx context.Context, id string) error {
	start := time.Now()
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.tokens.DeleteAllForUser(ctx, id); err != nil {
		return err
	}
	if err := s.signups.DeleteAllForUser(ctx, id); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	s.logger.Info("user deleted",
		zap.String("user_id", id),
		zap.Duration("duration", time.Since(start)))
	return nil
}
