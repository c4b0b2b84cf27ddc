package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-enroll-api/internal/models"
)

// CourseRepository handles read access to the course catalogue.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course with its lecture count.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	const query = `SELECT c.id, c.name, c.description, c.start_date, c.end_date, c.created_at,
        COUNT(l.id) AS lecture_count
        FROM courses c
        LEFT JOIN lectures l ON l.course_id = c.id
        WHERE c.id = $1
        GROUP BY c.id`
	var course models.CourseDetail
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListEnrolledUsers returns the users enrolled in a course, for roster
// exports.
func (r *CourseRepository) ListEnrolledUsers(ctx context.Context, courseID string) ([]models.User, error) {
	const query = `SELECT u.id, u.email, u.password_hash, u.full_name, u.role, u.active, u.created_at, u.updated_at
        FROM users u
        JOIN user_courses uc ON uc.user_id = u.id
        WHERE uc.course_id = $1
        ORDER BY u.full_name`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, courseID); err != nil {
		return nil, fmt.Errorf("list enrolled users: %w", err)
	}
	return users, nil
}

// List returns the catalogue with lecture counts and total count.
func (r *CourseRepository) List(ctx context.Context, page, pageSize int) ([]models.CourseDetail, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT c.id, c.name, c.description, c.start_date, c.end_date, c.created_at,
        COUNT(l.id) AS lecture_count
        FROM courses c
        LEFT JOIN lectures l ON l.course_id = c.id
        GROUP BY c.id
        ORDER BY c.start_date DESC LIMIT %d OFFSET %d`, pageSize, offset)

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses"); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}
