package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-enroll-api/internal/models"
	"github.com/noah-isme/course-enroll-api/pkg/certificate"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
)

type certificateRequestReader interface {
	FindByID(ctx context.Context, id string) (*models.SignupRequest, error)
}

type certificateUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type certificateCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseDetail, error)
}

type pinDecryptor interface {
	Decrypt(ciphertext string) (string, error)
}

type certificateRenderer interface {
	Render(data certificate.Data) ([]byte, error)
}

// CertificateService produces completion certificates for confirmed signup
// requests.
type CertificateService struct {
	requests  certificateRequestReader
	users     certificateUserReader
	courses   certificateCourseReader
	decryptor pinDecryptor
	renderer  certificateRenderer
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewCertificateService constructs CertificateService.
func NewCertificateService(requests certificateRequestReader, users certificateUserReader, courses certificateCourseReader, decryptor pinDecryptor, renderer certificateRenderer, metrics *MetricsService, logger *zap.Logger) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{
		requests:  requests,
		users:     users,
		courses:   courses,
		decryptor: decryptor,
		renderer:  renderer,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Generate renders the certificate for a confirmed request. The exam score is
// accepted and validated but does not currently appear in the document layout.
// Instructional hours are derived from the course's lecture count. Decryption
// failure aborts generation; a certificate never carries garbled identity
// data.
func (s *CertificateService) Generate(ctx context.Context, requestID string, examScore int) ([]byte, error) {
	start := s.now()
	out, err := s.generate(ctx, requestID, examScore, start)
	if s.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		s.metrics.ObserveCertificateRender(outcome, time.Since(start))
	}
	return out, err
}

func (s *CertificateService) generate(ctx context.Context, requestID string, examScore int, issuedAt time.Time) ([]byte, error) {
	if examScore < 0 || examScore > 100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam score must be between 0 and 100")
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "signup request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load signup request")
	}

	if !request.Confirmed {
		return nil, appErrors.Clone(appErrors.ErrNotConfirmed, "signup request is not confirmed")
	}

	user, err := s.users.FindByID(ctx, request.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	course, err := s.courses.FindByID(ctx, request.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	pin, err := s.decryptor.Decrypt(request.PinEncrypted)
	if err != nil {
		s.logger.Error("certificate generation aborted on decrypt failure",
			zap.String("request_id", request.ID),
		)
		return nil, err
	}

	document, err := s.renderer.Render(certificate.Data{
		FullName:   user.FullName,
		CourseName: course.Name,
		StartDate:  course.StartDate,
		EndDate:    course.EndDate,
		Hours:      course.LectureCount,
		PIN:        pin,
		IssuedAt:   issuedAt,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}

	s.logger.Info("certificate generated",
		zap.String("request_id", request.ID),
		zap.String("course_id", request.CourseID),
	)
	return document, nil
}
