package auth

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthRepo struct {
	mock.Mock
}

func (m *mockAuthRepo) GetUserByLogin(ctx context.Context, login string) (*User, error) {
	args := m.Called(ctx, login)
	if v := args.Get(0); v != nil {
		return v.(*User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthRepo) GetPartyFlags(ctx context.Context, userID int64) (*PartyFlags, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.(*PartyFlags), args.Error(1)
	}
	return nil, args.Error(1)
}

type fakeRevoker struct {
	revoked map[string]time.Duration
}

func (f *fakeRevoker) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if f.revoked == nil {
		f.revoked = make(map[string]time.Duration)
	}
	f.revoked[token] = ttl
	return nil
}

func seedUser(t *testing.T, password string) *User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	return &User{
		ID:           42,
		Name:         "Alice Smith",
		Login:        "alice",
		PasswordHash: hash,
		OTPVerified:  "true",
	}
}

func newTestService(repo Repository, revoker Revoker) *Service {
	return NewService(repo, revoker, []byte("test-secret"), time.Hour, zerolog.Nop())
}

func TestLoginPatient(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newTestService(repo, &fakeRevoker{})

	repo.On("GetUserByLogin", mock.Anything, "alice").Return(seedUser(t, "pw123456"), nil)
	repo.On("GetPartyFlags", mock.Anything, int64(42)).Return(&PartyFlags{IsPatient: true}, nil)

	session, err := svc.Login(context.Background(), "alice", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, RolePatient, session.Role)
	assert.Equal(t, int64(42), session.UserID)

	claims, err := ParseToken([]byte("test-secret"), session.Token)
	require.NoError(t, err)
	assert.Equal(t, RolePatient, claims.Role)
	assert.Equal(t, "alice", claims.Login)
}

func TestLoginDoctorRoleWinsOverPatient(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newTestService(repo, &fakeRevoker{})

	repo.On("GetUserByLogin", mock.Anything, "alice").Return(seedUser(t, "pw123456"), nil)
	repo.On("GetPartyFlags", mock.Anything, int64(42)).
		Return(&PartyFlags{IsHealthProf: true, IsPatient: true}, nil)

	session, err := svc.Login(context.Background(), "alice", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, RoleDoctor, session.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newTestService(repo, &fakeRevoker{})

	repo.On("GetUserByLogin", mock.Anything, "alice").Return(seedUser(t, "pw123456"), nil)

	_, err := svc.Login(context.Background(), "alice", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownUserHidesExistence(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newTestService(repo, &fakeRevoker{})

	repo.On("GetUserByLogin", mock.Anything, "ghost").Return(nil, ErrUserNotFound)

	_, err := svc.Login(context.Background(), "ghost", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginIncompleteRegistration(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newTestService(repo, &fakeRevoker{})

	user := seedUser(t, "pw123456")
	user.OTPVerified = "false"
	repo.On("GetUserByLogin", mock.Anything, "alice").Return(user, nil)

	_, err := svc.Login(context.Background(), "alice", "pw123456")
	assert.ErrorIs(t, err, ErrRegistrationIncomplete)
}

func TestLogoutRevokesForRemainingLife(t *testing.T) {
	repo := new(mockAuthRepo)
	revoker := &fakeRevoker{}
	svc := newTestService(repo, revoker)

	raw, err := IssueToken([]byte("test-secret"), time.Hour, 42, "Alice", "alice", RolePatient)
	require.NoError(t, err)
	claims, err := ParseToken([]byte("test-secret"), raw)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), raw, claims))

	ttl, ok := revoker.revoked[raw]
	require.True(t, ok)
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)
}
