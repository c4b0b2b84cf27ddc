package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-enroll-api/internal/models"
	"github.com/noah-isme/course-enroll-api/internal/repository"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
)

type courseStore interface {
	FindByID(ctx context.Context, id string) (*models.CourseDetail, error)
	List(ctx context.Context, page, pageSize int) ([]models.CourseDetail, int, error)
}

// CourseService serves catalogue reads with a Redis read-through cache.
type CourseService struct {
	courses  courseStore
	cache    *repository.CacheRepository
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewCourseService constructs a CourseService instance.
func NewCourseService(courses courseStore, cache *repository.CacheRepository, logger *zap.Logger, cacheTTL time.Duration) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, cache: cache, logger: logger, cacheTTL: cacheTTL}
}

type courseListPage struct {
	Courses    []models.CourseDetail `json:"courses"`
	TotalCount int                   `json:"total_count"`
}

// Get returns a single course with its lecture count.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, error) {
	key := fmt.Sprintf("course:%s", id)
	if s.cache != nil {
		var cached models.CourseDetail
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("course cache read failed", zap.String("course_id", id), zap.Error(err))
		}
	}

	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch course")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, course, s.cacheTTL); err != nil {
			s.logger.Warn("course cache write failed", zap.String("course_id", id), zap.Error(err))
		}
	}
	return course, nil
}

// List returns a catalogue page and the total course count.
func (s *CourseService) List(ctx context.Context, page, pageSize int) ([]models.CourseDetail, int, error) {
	key := fmt.Sprintf("courses:%d:%d", page, pageSize)
	if s.cache != nil {
		var cached courseListPage
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached.Courses, cached.TotalCount, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("course list cache read failed", zap.Error(err))
		}
	}

	courses, total, err := s.courses.List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, courseListPage{Courses: courses, TotalCount: total}, s.cacheTTL); err != nil {
			s.logger.Warn("course list cache write failed", zap.Error(err))
		}
	}
	return courses, total, nil
}
