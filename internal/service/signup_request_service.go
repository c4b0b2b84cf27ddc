package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-enroll-api/internal/models"
	"github.com/noah-isme/course-enroll-api/internal/repository"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
)

// pinPattern is the fixed contract for national identification numbers:
// exactly ten ASCII digits, no separators. Checked on the plaintext before
// any encryption happens.
var pinPattern = regexp.MustCompile(`^[0-9]{10}$`)

type signupRequestStore interface {
	Create(ctx context.Context, request *models.SignupRequest) error
	FindByID(ctx context.Context, id string) (*models.SignupRequest, error)
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.SignupRequest, error)
	ListUnconfirmed(ctx context.Context) ([]models.SignupRequestDetail, error)
	ListByUser(ctx context.Context, userID string) ([]models.SignupRequest, error)
	TryConfirm(ctx context.Context, id string, now time.Time) (bool, error)
	DeleteByUser(ctx context.Context, userID string) error
}

type signupUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type signupCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseDetail, error)
}

type pinEncryptor interface {
	Encrypt(plaintext string) (string, error)
}

// CreateSignupRequest describes the signup payload.
type CreateSignupRequest struct {
	UserID      string `json:"user_id" validate:"required"`
	CourseID    string `json:"course_id" validate:"required"`
	PIN         string `json:"pin" validate:"required"`
	Citizenship string `json:"citizenship" validate:"required,min=2"`
}

// SignupRequestService orchestrates the course signup workflow.
type SignupRequestService struct {
	repo      signupRequestStore
	users     signupUserReader
	courses   signupCourseReader
	encryptor pinEncryptor
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSignupRequestService constructs SignupRequestService.
func NewSignupRequestService(repo signupRequestStore, users signupUserReader, courses signupCourseReader, encryptor pinEncryptor, validate *validator.Validate, logger *zap.Logger) *SignupRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignupRequestService{
		repo:      repo,
		users:     users,
		courses:   courses,
		encryptor: encryptor,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and persists a signup request. The PIN is validated in
// plaintext, encrypted, and discarded; only the ciphertext is kept. The
// unique index on (user, course) is the final arbiter of duplicates.
func (s *SignupRequestService) Create(ctx context.Context, req CreateSignupRequest) (*models.SignupRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signup payload")
	}
	if !pinPattern.MatchString(req.PIN) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "pin must be exactly 10 digits")
	}

	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	// Fast-path duplicate check; the insert below still races safely.
	if _, err := s.repo.FindByUserAndCourse(ctx, req.UserID, req.CourseID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "signup request already exists for this course")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing request")
	}

	encryptedPIN, err := s.encryptor.Encrypt(req.PIN)
	if err != nil {
		return nil, err
	}

	request := &models.SignupRequest{
		UserID:       req.UserID,
		CourseID:     req.CourseID,
		PinEncrypted: encryptedPIN,
		TrackingCode: uuid.NewString(),
		Citizenship:  req.Citizenship,
		MadeAt:       s.now(),
		Confirmed:    false,
	}

	if err := s.repo.Create(ctx, request); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "signup request already exists for this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create signup request")
	}

	s.logger.Info("signup request created",
		zap.String("request_id", request.ID),
		zap.String("user_id", request.UserID),
		zap.String("course_id", request.CourseID),
		zap.String("tracking_code", request.TrackingCode),
	)
	return request, nil
}

// Confirm approves a request and adds the course to the user's roster. Both
// writes commit together or not at all; confirming twice is an error.
func (s *SignupRequestService) Confirm(ctx context.Context, requestID string) error {
	ok, err := s.repo.TryConfirm(ctx, requestID, s.now())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm signup request")
	}
	if !ok {
		request, lookupErr := s.repo.FindByID(ctx, requestID)
		if lookupErr != nil {
			if errors.Is(lookupErr, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "signup request not found")
			}
			return appErrors.Wrap(lookupErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load signup request")
		}
		if request.Confirmed {
			if request.ConfirmedAt != nil {
				return appErrors.AlreadyConfirmedAt("signup request", *request.ConfirmedAt)
			}
			return appErrors.Clone(appErrors.ErrAlreadyConfirmed, "signup request already confirmed")
		}
		return appErrors.Clone(appErrors.ErrInternal, "signup request confirmation did not apply")
	}

	s.logger.Info("signup request confirmed", zap.String("request_id", requestID))
	return nil
}

// ListUnconfirmed returns requests awaiting staff review.
func (s *SignupRequestService) ListUnconfirmed(ctx context.Context) ([]models.SignupRequestDetail, error) {
	requests, err := s.repo.ListUnconfirmed(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list signup requests")
	}
	return requests, nil
}

// ListForUser returns every request made by a user.
func (s *SignupRequestService) ListForUser(ctx context.Context, userID string) ([]models.SignupRequest, error) {
	requests, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list user signup requests")
	}
	return requests, nil
}

// FindByUserAndCourse resolves the request for a (user, course) pair.
func (s *SignupRequestService) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.SignupRequest, error) {
	request, err := s.repo.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "signup request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load signup request")
	}
	return request, nil
}

// DeleteAllForUser removes every request owned by the user.
func (s *SignupRequestService) DeleteAllForUser(ctx context.Context, userID string) error {
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user signup requests")
	}
	return nil
}
