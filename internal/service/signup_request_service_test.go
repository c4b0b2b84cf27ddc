package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-enroll-api/internal/models"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
)

type mockSignupStore struct {
	requests   map[string]*models.SignupRequest
	createErr  error
	confirmErr error
	deleted    []string
	roster     map[string]bool
}

func newMockSignupStore() *mockSignupStore {
	return &mockSignupStore{
		requests: make(map[string]*models.SignupRequest),
		roster:   make(map[string]bool),
	}
}

func (m *mockSignupStore) Create(ctx context.Context, request *models.SignupRequest) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.requests {
		if existing.UserID == request.UserID && existing.CourseID == request.CourseID {
			return &pq.Error{Code: "23505"}
		}
	}
	if request.ID == "" {
		request.ID = "req-" + request.TrackingCode
	}
	copied := *request
	m.requests[request.ID] = &copied
	return nil
}

func (m *mockSignupStore) FindByID(ctx context.Context, id string) (*models.SignupRequest, error) {
	request, ok := m.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *request
	return &copied, nil
}

func (m *mockSignupStore) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.SignupRequest, error) {
	for _, request := range m.requests {
		if request.UserID == userID && request.CourseID == courseID {
			copied := *request
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSignupStore) ListUnconfirmed(ctx context.Context) ([]models.SignupRequestDetail, error) {
	var details []models.SignupRequestDetail
	for _, request := range m.requests {
		if !request.Confirmed {
			details = append(details, models.SignupRequestDetail{SignupRequest: *request})
		}
	}
	return details, nil
}

func (m *mockSignupStore) ListByUser(ctx context.Context, userID string) ([]models.SignupRequest, error) {
	var requests []models.SignupRequest
	for _, request := range m.requests {
		if request.UserID == userID {
			requests = append(requests, *request)
		}
	}
	return requests, nil
}

func (m *mockSignupStore) TryConfirm(ctx context.Context, id string, now time.Time) (bool, error) {
	if m.confirmErr != nil {
		return false, m.confirmErr
	}
	request, ok := m.requests[id]
	if !ok || request.Confirmed {
		return false, nil
	}
	request.Confirmed = true
	confirmedAt := now
	request.ConfirmedAt = &confirmedAt
	m.roster[request.UserID+"/"+request.CourseID] = true
	return true, nil
}

func (m *mockSignupStore) DeleteByUser(ctx context.Context, userID string) error {
	m.deleted = append(m.deleted, userID)
	for id, request := range m.requests {
		if request.UserID == userID {
			delete(m.requests, id)
		}
	}
	return nil
}

type mockUserReader struct {
	users map[string]*models.User
	err   error
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

type mockCourseReader struct {
	courses map[string]*models.CourseDetail
	err     error
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return course, nil
}

type mockEncryptor struct {
	err       error
	encrypted []string
}

func (m *mockEncryptor) Encrypt(plaintext string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.encrypted = append(m.encrypted, plaintext)
	return "enc(" + plaintext + ")", nil
}

func newSignupFixture() (*SignupRequestService, *mockSignupStore) {
	store := newMockSignupStore()
	users := &mockUserReader{users: map[string]*models.User{
		"user-1": {ID: "user-1", FullName: "Ana Souza", Email: "ana@example.com", Active: true},
	}}
	courses := &mockCourseReader{courses: map[string]*models.CourseDetail{
		"course-1": {Course: models.Course{ID: "course-1", Name: "Network Security"}, LectureCount: 12},
	}}
	svc := NewSignupRequestService(store, users, courses, &mockEncryptor{}, validator.New(), zap.NewNop())
	return svc, store
}

func TestSignupRequestServiceCreate(t *testing.T) {
	svc, store := newSignupFixture()

	request, err := svc.Create(context.Background(), CreateSignupRequest{
		UserID:      "user-1",
		CourseID:    "course-1",
		PIN:         "1234567890",
		Citizenship: "brazilian",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, request.TrackingCode)
	assert.Equal(t, "enc(1234567890)", request.PinEncrypted)
	assert.False(t, request.Confirmed)
	assert.False(t, request.MadeAt.IsZero())

	stored, err := store.FindByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, request.TrackingCode, stored.TrackingCode)
	assert.Equal(t, "enc(1234567890)", stored.PinEncrypted)
}

func TestSignupRequestServiceCreateUniqueTrackingCodes(t *testing.T) {
	svc, _ := newSignupFixture()
	svc.courses = &mockCourseReader{courses: map[string]*models.CourseDetail{
		"course-1": {Course: models.Course{ID: "course-1"}},
		"course-2": {Course: models.Course{ID: "course-2"}},
	}}

	first, err := svc.Create(context.Background(), CreateSignupRequest{
		UserID: "user-1", CourseID: "course-1", PIN: "1234567890", Citizenship: "brazilian",
	})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), CreateSignupRequest{
		UserID: "user-1", CourseID: "course-2", PIN: "1234567890", Citizenship: "brazilian",
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.TrackingCode, second.TrackingCode)
}

func TestSignupRequestServiceCreateRejectsBadPINs(t *testing.T) {
	svc, _ := newSignupFixture()

	for _, pin := range []string{"12345", "12345678901", "123456789a", "12345 6789", ""} {
		_, err := svc.Create(context.Background(), CreateSignupRequest{
			UserID:      "user-1",
			CourseID:    "course-1",
			PIN:         pin,
			Citizenship: "brazilian",
		})
		require.Error(t, err, "pin %q", pin)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code, "pin %q", pin)
	}
}

func TestSignupRequestServiceCreateUnknownUserAndCourse(t *testing.T) {
	svc, _ := newSignupFixture()

	_, err := svc.Create(context.Background(), CreateSignupRequest{
		UserID: "ghost", CourseID: "course-1", PIN: "1234567890", Citizenship: "brazilian",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), CreateSignupRequest{
		UserID: "user-1", CourseID: "ghost", PIN: "1234567890", Citizenship: "brazilian",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSignupRequestServiceCreateDuplicateConflict(t *testing.T) {
	svc, _ := newSignupFixture()

	payload := CreateSignupRequest{
		UserID: "user-1", CourseID: "course-1", PIN: "1234567890", Citizenship: "brazilian",
	}
	_, err := svc.Create(context.Background(), payload)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), payload)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSignupRequestServiceCreateMapsUniqueViolation(t *testing.T) {
	// Two racing creates can both pass the fast-path check; the store's unique
	// index reports the loser, which must surface as a conflict.
	svc, store := newSignupFixture()
	store.createErr = &pq.Error{Code: "23505"}

	_, err := svc.Create(context.Background(), CreateSignupRequest{
		UserID: "user-1", CourseID: "course-1", PIN: "1234567890", Citizenship: "brazilian",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSignupRequestServiceCreateEncryptFailure(t *testing.T) {
	svc, _ := newSignupFixture()
	svc.encryptor = &mockEncryptor{err: appErrors.Clone(appErrors.ErrCrypto, "encryption failed")}

	_, err := svc.Create(context.Background(), CreateSignupRequest{
		UserID: "user-1", CourseID: "course-1", PIN: "1234567890", Citizenship: "brazilian",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCrypto.Code, appErrors.FromError(err).Code)
}

func TestSignupRequestServiceConfirm(t *testing.T) {
	svc, store := newSignupFixture()

	request, err := svc.Create(context.Background(), CreateSignupRequest{
		UserID: "user-1", CourseID: "course-1", PIN: "1234567890", Citizenship: "brazilian",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Confirm(context.Background(), request.ID))

	stored, err := store.FindByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.True(t, stored.Confirmed)
	require.NotNil(t, stored.ConfirmedAt)
	assert.True(t, store.roster["user-1/course-1"])
}

func TestSignupRequestServiceConfirmTwice(t *testing.T) {
	svc, _ := newSignupFixture()

	request, err := svc.Create(context.Background(), CreateSignupRequest{
		UserID: "user-1", CourseID: "course-1", PIN: "1234567890", Citizenship: "brazilian",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Confirm(context.Background(), request.ID))
	err = svc.Confirm(context.Background(), request.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyConfirmed.Code, appErrors.FromError(err).Code)
}

func TestSignupRequestServiceConfirmUnknown(t *testing.T) {
	svc, _ := newSignupFixture()

	err := svc.Confirm(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSignupRequestServiceConfirmStoreFailure(t *testing.T) {
	svc, store := newSignupFixture()
	store.confirmErr = errors.New("db down")

	err := svc.Confirm(context.Background(), "any")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestSignupRequestServiceLists(t *testing.T) {
	svc, _ := newSignupFixture()

	request, err := svc.Create(context.Background(), CreateSignupRequest{
		UserID: "user-1", CourseID: "course-1", PIN: "1234567890", Citizenship: "brazilian",
	})
	require.NoError(t, err)

	unconfirmed, err := svc.ListUnconfirmed(context.Background())
	require.NoError(t, err)
	require.Len(t, unconfirmed, 1)
	assert.Equal(t, request.ID, unconfirmed[0].ID)

	mine, err := svc.ListForUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.NoError(t, svc.Confirm(context.Background(), request.ID))

	unconfirmed, err = svc.ListUnconfirmed(context.Background())
	require.NoError(t, err)
	assert.Empty(t, unconfirmed)
}

func TestSignupRequestServiceFindByUserAndCourse(t *testing.T) {
	svc, _ := newSignupFixture()

	created, err := svc.Create(context.Background(), CreateSignupRequest{
		UserID: "user-1", CourseID: "course-1", PIN: "1234567890", Citizenship: "brazilian",
	})
	require.NoError(t, err)

	found, err := svc.FindByUserAndCourse(context.Background(), "user-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = svc.FindByUserAndCourse(context.Background(), "user-1", "other")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSignupRequestServiceDeleteAllForUser(t *testing.T) {
	svc, store := newSignupFixture()

	_, err := svc.Create(context.Background(), CreateSignupRequest{
		UserID: "user-1", CourseID: "course-1", PIN: "1234567890", Citizenship: "brazilian",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAllForUser(context.Background(), "user-1"))
	assert.Equal(t, []string{"user-1"}, store.deleted)

	mine, err := svc.ListForUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, mine)
}
