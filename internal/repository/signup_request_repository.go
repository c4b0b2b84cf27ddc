package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/course-enroll-api/internal/models"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether the error is a Postgres unique-constraint
// violation. The unique index on (user_id, course_id) is the source of truth
// for the one-request-per-pair invariant; pre-checks in the service are only
// an optimisation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

// SignupRequestRepository persists course signup requests.
type SignupRequestRepository struct {
	db *sqlx.DB
}

// NewSignupRequestRepository constructs the repository.
func NewSignupRequestRepository(db *sqlx.DB) *SignupRequestRepository {
	return &SignupRequestRepository{db: db}
}

// Create persists a new signup request. A duplicate (user, course) pair or a
// tracking-code collision surfaces as a unique violation.
func (r *SignupRequestRepository) Create(ctx context.Context, request *models.SignupRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.MadeAt.IsZero() {
		request.MadeAt = time.Now().UTC()
	}
	const query = `INSERT INTO signup_requests (id, user_id, course_id, pin_encrypted, tracking_code, citizenship, made_at, confirmed, confirmed_at)
        VALUES (:id, :user_id, :course_id, :pin_encrypted, :tracking_code, :citizenship, :made_at, :confirmed, :confirmed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create signup request: %w", err)
	}
	return nil
}

// FindByID returns a signup request.
func (r *SignupRequestRepository) FindByID(ctx context.Context, id string) (*models.SignupRequest, error) {
	const query = `SELECT id, user_id, course_id, pin_encrypted, tracking_code, citizenship, made_at, confirmed, confirmed_at
        FROM signup_requests WHERE id = $1 LIMIT 1`
	var request models.SignupRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// FindByUserAndCourse returns the request for the pair, if any.
func (r *SignupRequestRepository) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.SignupRequest, error) {
	const query = `SELECT id, user_id, course_id, pin_encrypted, tracking_code, citizenship, made_at, confirmed, confirmed_at
        FROM signup_requests WHERE user_id = $1 AND course_id = $2 LIMIT 1`
	var request models.SignupRequest
	if err := r.db.GetContext(ctx, &request, query, userID, courseID); err != nil {
		return nil, err
	}
	return &request, nil
}

// ListUnconfirmed returns pending requests enriched for staff review.
func (r *SignupRequestRepository) ListUnconfirmed(ctx context.Context) ([]models.SignupRequestDetail, error) {
	const query = `SELECT sr.id, sr.user_id, sr.course_id, sr.pin_encrypted, sr.tracking_code, sr.citizenship, sr.made_at, sr.confirmed, sr.confirmed_at,
        u.full_name AS user_full_name, u.email AS user_email, c.name AS course_name
        FROM signup_requests sr
        LEFT JOIN users u ON u.id = sr.user_id
        LEFT JOIN courses c ON c.id = sr.course_id
        WHERE sr.confirmed = FALSE
        ORDER BY sr.made_at ASC`
	var requests []models.SignupRequestDetail
	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("list unconfirmed signup requests: %w", err)
	}
	return requests, nil
}

// ListByUser returns all requests made by a user.
func (r *SignupRequestRepository) ListByUser(ctx context.Context, userID string) ([]models.SignupRequest, error) {
	const query = `SELECT id, user_id, course_id, pin_encrypted, tracking_code, citizenship, made_at, confirmed, confirmed_at
        FROM signup_requests WHERE user_id = $1 ORDER BY made_at DESC`
	var requests []models.SignupRequest
	if err := r.db.SelectContext(ctx, &requests, query, userID); err != nil {
		return nil, fmt.Errorf("list user signup requests: %w", err)
	}
	return requests, nil
}

// TryConfirm marks the request confirmed and appends the course to the user's
// roster in one transaction. The UPDATE's confirmed = FALSE guard is the
// compare-and-swap; the roster insert is idempotent via ON CONFLICT DO
// NOTHING. Either both writes commit or neither does. A false return means
// the guard did not match; the caller re-reads to tell missing from already
// confirmed.
func (r *SignupRequestRepository) TryConfirm(ctx context.Context, id string, now time.Time) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin confirm tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const update = `UPDATE signup_requests SET confirmed = TRUE, confirmed_at = $2
        WHERE id = $1 AND confirmed = FALSE
        RETURNING user_id, course_id`
	var userID, courseID string
	if err := tx.QueryRowxContext(ctx, update, id, now).Scan(&userID, &courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("confirm signup request: %w", err)
	}

	const roster = `INSERT INTO user_courses (user_id, course_id, added_at)
        VALUES ($1, $2, $3) ON CONFLICT (user_id, course_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, roster, userID, courseID, now); err != nil {
		return false, fmt.Errorf("append course to roster: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit confirm tx: %w", err)
	}
	return true, nil
}

// DeleteByUser removes every request made by the user.
func (r *SignupRequestRepository) DeleteByUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM signup_requests WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete user signup requests: %w", err)
	}
	return nil
}
