package service

import (
	"bytes"
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-enroll-api/internal/models"
	"github.com/noah-isme/course-enroll-api/pkg/certificate"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
)

type mockRequestReader struct {
	request *models.SignupRequest
}

func (m *mockRequestReader) FindByID(ctx context.Context, id string) (*models.SignupRequest, error) {
	if m.request == nil || m.request.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *m.request
	return &copied, nil
}

type mockDecryptor struct {
	plaintext string
	err       error
}

func (m *mockDecryptor) Decrypt(ciphertext string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.plaintext, nil
}

type mockRenderer struct {
	rendered []certificate.Data
	err      error
}

func (m *mockRenderer) Render(data certificate.Data) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.rendered = append(m.rendered, data)
	return []byte("%PDF-" + data.FullName), nil
}

func newCertificateFixture() (*CertificateService, *mockRequestReader, *mockRenderer) {
	confirmedAt := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	requests := &mockRequestReader{request: &models.SignupRequest{
		ID:           "req-1",
		UserID:       "user-1",
		CourseID:     "course-1",
		PinEncrypted: "ciphertext",
		Confirmed:    true,
		ConfirmedAt:  &confirmedAt,
	}}
	users := &mockUserReader{users: map[string]*models.User{
		"user-1": {ID: "user-1", FullName: "Ana Souza", Email: "ana@example.com"},
	}}
	courses := &mockCourseReader{courses: map[string]*models.CourseDetail{
		"course-1": {
			Course: models.Course{
				ID:        "course-1",
				Name:      "Network Security",
				StartDate: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			},
			LectureCount: 12,
		},
	}}
	renderer := &mockRenderer{}
	svc := NewCertificateService(requests, users, courses, &mockDecryptor{plaintext: "1234567890"}, renderer, nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC) }
	return svc, requests, renderer
}

func TestCertificateServiceGenerate(t *testing.T) {
	svc, _, renderer := newCertificateFixture()

	out, err := svc.Generate(context.Background(), "req-1", 87)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	require.Len(t, renderer.rendered, 1)
	data := renderer.rendered[0]
	assert.Equal(t, "Ana Souza", data.FullName)
	assert.Equal(t, "Network Security", data.CourseName)
	assert.Equal(t, 12, data.Hours)
	assert.Equal(t, "1234567890", data.PIN)
	assert.Equal(t, time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC), data.IssuedAt)
}

func TestCertificateServiceExamScoreDoesNotChangeOutput(t *testing.T) {
	svc, _, renderer := newCertificateFixture()

	first, err := svc.Generate(context.Background(), "req-1", 10)
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), "req-1", 95)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, renderer.rendered, 2)
	assert.Equal(t, renderer.rendered[0], renderer.rendered[1])
}

func TestCertificateServiceRejectsOutOfRangeScore(t *testing.T) {
	svc, _, _ := newCertificateFixture()

	for _, score := range []int{-1, 101} {
		_, err := svc.Generate(context.Background(), "req-1", score)
		require.Error(t, err, "score %d", score)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestCertificateServiceRejectsUnconfirmedRequest(t *testing.T) {
	svc, requests, renderer := newCertificateFixture()
	requests.request.Confirmed = false
	requests.request.ConfirmedAt = nil

	_, err := svc.Generate(context.Background(), "req-1", 87)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotConfirmed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, renderer.rendered)
}

func TestCertificateServiceUnknownRequest(t *testing.T) {
	svc, _, _ := newCertificateFixture()

	_, err := svc.Generate(context.Background(), "missing", 87)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCertificateServiceAbortsOnDecryptFailure(t *testing.T) {
	svc, _, renderer := newCertificateFixture()
	svc.decryptor = &mockDecryptor{err: appErrors.Clone(appErrors.ErrCrypto, "decryption failed")}

	_, err := svc.Generate(context.Background(), "req-1", 87)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCrypto.Code, appErrors.FromError(err).Code)
	assert.Empty(t, renderer.rendered)
}

func TestCertificateServiceWrapsRenderFailure(t *testing.T) {
	svc, _, _ := newCertificateFixture()
	svc.renderer = &mockRenderer{err: assert.AnError}

	_, err := svc.Generate(context.Background(), "req-1", 87)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
