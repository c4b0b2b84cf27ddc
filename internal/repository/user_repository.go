package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-enroll-api/internal/models"
)

// UserRepository provides database access for user accounts and their
// enrolled-course roster.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create persists a new user account.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	const query = `INSERT INTO users (id, email, password_hash, full_name, role, active, created_at, updated_at)
        VALUES (:id, :email, :password_hash, :full_name, :role, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT id, email, password_hash, full_name, role, active, created_at, updated_at FROM users WHERE email = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, email, password_hash, full_name, role, active, created_at, updated_at FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// Activate marks the account usable after email confirmation.
func (r *UserRepository) Activate(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET active = TRUE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("activate user: %w", err)
	}
	return nil
}

// UpdateRole changes the role of a user.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role models.UserRole, ts time.Time) error {
	const query = `UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, role, ts); err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	return nil
}

// ListCourseIDs returns the IDs of the courses the user is enrolled in.
func (r *UserRepository) ListCourseIDs(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT course_id FROM user_courses WHERE user_id = $1 ORDER BY course_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("list user courses: %w", err)
	}
	return ids, nil
}

// Delete removes the account row. Dependent rows are removed by the service
// layer through the token and signup-request repositories before this call.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const rosterQuery = `DELETE FROM user_courses WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, rosterQuery, id); err != nil {
		return fmt.Errorf("delete user roster: %w", err)
	}
	const query = `DELETE FROM users WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
