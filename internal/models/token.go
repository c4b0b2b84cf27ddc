package models

import "time"

// TokenKind discriminates the confirmation token namespaces. A registration
// token can never satisfy an elevation lookup and vice versa.
type TokenKind string

const (
	TokenKindRegistration TokenKind = "REGISTRATION"
	TokenKindElevation    TokenKind = "ADMIN_ELEVATION"
)

// ConfirmationToken is a single-use, time-boxed credential. The ID is the full
// secret: a 128-bit random value in UUID form, generated with crypto/rand.
type ConfirmationToken struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	Kind        TokenKind  `db:"kind" json:"kind"`
	IssuedAt    time.Time  `db:"issued_at" json:"issued_at"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expires_at"`
	ConfirmedAt *time.Time `db:"confirmed_at" json:"confirmed_at,omitempty"`
}

// Confirmed reports whether the token has been used.
func (t *ConfirmationToken) Confirmed() bool {
	return t.ConfirmedAt != nil
}

// Expired reports whether the token lapsed unused at the given instant.
func (t *ConfirmationToken) Expired(now time.Time) bool {
	return t.ConfirmedAt == nil && now.After(t.ExpiresAt)
}
