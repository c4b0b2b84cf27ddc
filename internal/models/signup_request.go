package models

import "time"

// SignupRequest captures a user's request to enroll in a course. The national
// identification number is stored encrypted only; the plaintext PIN never
// reaches the database or the logs.
type SignupRequest struct {
	ID           string     `db:"id" json:"id"`
	UserID       string     `db:"user_id" json:"user_id"`
	CourseID     string     `db:"course_id" json:"course_id"`
	PinEncrypted string     `db:"pin_encrypted" json:"-"`
	TrackingCode string     `db:"tracking_code" json:"tracking_code"`
	Citizenship  string     `db:"citizenship" json:"citizenship"`
	MadeAt       time.Time  `db:"made_at" json:"made_at"`
	Confirmed    bool       `db:"confirmed" json:"confirmed"`
	ConfirmedAt  *time.Time `db:"confirmed_at" json:"confirmed_at,omitempty"`
}

// SignupRequestDetail enriches SignupRequest with user and course info for
// staff-facing listings.
type SignupRequestDetail struct {
	SignupRequest
	UserFullName string `db:"user_full_name" json:"user_full_name"`
	UserEmail    string `db:"user_email" json:"user_email"`
	CourseName   string `db:"course_name" json:"course_name"`
}
