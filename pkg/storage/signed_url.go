package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignedURLSigner mints and verifies the opaque tokens used for report
// downloads. A token is base64url(jobID|expiryUnix|path) plus an HMAC-SHA256
// signature over that payload; holders need no session to redeem it.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl}
}

// Generate returns a signed token referencing the job and its stored file.
func (s *SignedURLSigner) Generate(jobID, name string) (string, time.Time, error) {
	if jobID == "" || name == "" {
		return "", time.Time{}, fmt.Errorf("job id and file name are required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	if strings.Contains(jobID, "|") || strings.Contains(name, "|") {
		return "", time.Time{}, fmt.Errorf("job id and file name must not contain separators")
	}

	expiresAt := time.Now().Add(s.ttl)
	payload := fmt.Sprintf("%s|%d|%s", jobID, expiresAt.Unix(), name)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	token := encoded + "." + s.sign(encoded)
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded metadata. With
// allowExpired the timestamp check is skipped, which cleanup routines use to
// locate stale files.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (jobID, name string, expiresAt time.Time, err error) {
	encoded, signature, found := strings.Cut(token, ".")
	if !found {
		return "", "", time.Time{}, fmt.Errorf("malformed download token")
	}
	if !hmac.Equal([]byte(s.sign(encoded)), []byte(signature)) {
		return "", "", time.Time{}, fmt.Errorf("download token signature mismatch")
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("decode download token: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 3)
	if len(parts) != 3 {
		return "", "", time.Time{}, fmt.Errorf("malformed download token payload")
	}

	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("malformed download token expiry")
	}
	expiresAt = time.Unix(expUnix, 0)
	if !allowExpired && time.Now().After(expiresAt) {
		return "", "", time.Time{}, fmt.Errorf("download token expired")
	}
	return parts[0], parts[2], expiresAt, nil
}

func (s *SignedURLSigner) sign(encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
