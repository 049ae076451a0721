package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"fieldops/internal/model"
	"fieldops/internal/repository/memstore"
	"fieldops/internal/storage"
)

var eat = time.FixedZone("EAT", 3*60*60)

// fixedNow is 09:00 Nairobi time on a Tuesday.
func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 9, 0, 0, 0, eat)
}

const testPassword = "secret123"

func newTestStore() *memstore.Store {
	st := memstore.New()
	st.Now = fixedNow
	return st
}

func createUser(t *testing.T, st *memstore.Store, name string, role model.Role, region string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	email := name + "@example.com"
	user := &model.User{
		Name:         name,
		Email:        &email,
		PasswordHash: string(hash),
		Role:         role,
		Region:       region,
	}
	require.NoError(t, st.Users().Create(context.Background(), user))
	return user
}

func createJob(t *testing.T, st *memstore.Store, job *model.Job) *model.Job {
	t.Helper()
	if job.JobType == "" {
		job.JobType = "INSTALL"
	}
	if job.ScheduledDate.IsZero() {
		job.ScheduledDate = fixedNow().Add(3 * time.Hour)
	}
	require.NoError(t, st.Jobs().Create(context.Background(), job))
	return job
}

func reload(t *testing.T, st *memstore.Store, id uint) *model.User {
	t.Helper()
	user, err := st.Users().FindByID(context.Background(), id)
	require.NoError(t, err)
	return user
}

func uintPtr(v uint) *uint { return &v }

func statusPtr(s model.JobStatus) *model.JobStatus { return &s }

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

// MockTokenStore is a mock implementation of auth.TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// MockFileStore is a mock implementation of storage.FileStore.
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Save(ctx context.Context, input storage.UploadInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *MockFileStore) Delete(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

// MockEscalationNotifier is a mock implementation of notify.EscalationNotifier.
type MockEscalationNotifier struct {
	mock.Mock
}

func (m *MockEscalationNotifier) JobEscalated(ctx context.Context, job *model.Job, remarks string) error {
	args := m.Called(ctx, job, remarks)
	return args.Error(0)
}

// MockSMSSender is a mock implementation of notify.SMSSender.
type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) Send(ctx context.Context, phone, message string) (string, error) {
	args := m.Called(ctx, phone, message)
	return args.String(0), args.Error(1)
}
