package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/inventory-auth/internal/auth"
	"github.com/spec-kit/inventory-auth/internal/config"
	"github.com/spec-kit/inventory-auth/internal/domain"
	"github.com/spec-kit/inventory-auth/internal/events"
	"github.com/spec-kit/inventory-auth/internal/mocks"
	apperrors "github.com/spec-kit/inventory-auth/pkg/errorutil"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

type fixture struct {
	svc      *AuthService
	users    *mocks.MockUserRepository
	attempts *mocks.MockLoginAttemptRepository
	events   *mocks.RecordingDispatcher
	clock    *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{now: time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)}
	codec, err := auth.NewTokenCodec([]byte("service-test-secret-service-test"), auth.WithClock(clock.Now))
	require.NoError(t, err)

	f := &fixture{
		users:    mocks.NewMockUserRepository(),
		attempts: mocks.NewMockLoginAttemptRepository(),
		events:   &mocks.RecordingDispatcher{},
		clock:    clock,
	}
	cfg := config.AuthConfig{
		AccessTokenTTLMinutes:  15,
		RefreshTokenTTLMinutes: 60,
		BcryptCost:             bcrypt.MinCost,
		LoginMaxAttempts:       3,
		LoginLockoutMinutes:    15,
	}
	f.svc = NewAuthService(cfg, codec, AuthDependencies{
		Users:    f.users,
		Attempts: f.attempts,
		Events:   f.events,
	})
	return f
}

func (f *fixture) addUser(t *testing.T, username, password string, active bool, roles ...domain.Role) {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	f.users.Add(&domain.User{
		ID:           username + "-id",
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Active:       active,
		Roles:        roles,
	})
}

func TestAuthenticate_ThenValidate(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-pw", true, domain.RoleSales)
	ctx := context.Background()

	pair, err := f.svc.Authenticate(ctx, "alice", "correct-pw")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, f.clock.now.Add(15*time.Minute), pair.ExpiresAt)
	assert.Equal(t, f.clock.now.Add(time.Hour), pair.RefreshExpiresAt)
	assert.Equal(t, []domain.Role{domain.RoleSales}, pair.Roles)

	subject, roles, err := f.svc.Validate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
	assert.Equal(t, []domain.Role{domain.RoleSales}, roles)

	assert.Equal(t, []events.EventType{events.EventLoginSucceeded}, f.events.Types())
}

func TestAuthenticate_BadCredentials(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-pw", true, domain.RoleSales)
	ctx := context.Background()

	_, err := f.svc.Authenticate(ctx, "alice", "wrong-pw")
	assert.ErrorIs(t, err, auth.ErrBadCredentials)

	_, err = f.svc.Authenticate(ctx, "nobody", "whatever")
	assert.ErrorIs(t, err, auth.ErrBadCredentials)

	failures, err := f.attempts.Failures(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), failures)
}

func TestAuthenticate_DisabledAccount(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "carol", "pw-carol", false, domain.RoleInventory)

	_, err := f.svc.Authenticate(context.Background(), "carol", "pw-carol")
	assert.ErrorIs(t, err, auth.ErrAccountDisabled)

	// wrong password on a disabled account still reads as bad credentials
	_, err = f.svc.Authenticate(context.Background(), "carol", "nope")
	assert.ErrorIs(t, err, auth.ErrBadCredentials)
}

func TestAuthenticate_Throttle(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-pw", true, domain.RoleSales)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Authenticate(ctx, "alice", "wrong-pw")
		require.ErrorIs(t, err, auth.ErrBadCredentials)
	}

	_, err := f.svc.Authenticate(ctx, "Alice", "correct-pw")
	assert.ErrorIs(t, err, auth.ErrTooManyAttempts)

	require.NoError(t, f.attempts.Reset(ctx, "alice"))
	_, err = f.svc.Authenticate(ctx, "alice", "correct-pw")
	assert.NoError(t, err)
}

func TestAuthenticate_SuccessResetsFailures(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-pw", true, domain.RoleSales)
	ctx := context.Background()

	_, err := f.svc.Authenticate(ctx, "alice", "wrong-pw")
	require.Error(t, err)
	_, err = f.svc.Authenticate(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	failures, err := f.attempts.Failures(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, failures)
}

func TestAuthenticate_ThrottleStoreUnavailableFailsOpen(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-pw", true, domain.RoleSales)
	f.attempts.Error = errors.New("redis down")

	_, err := f.svc.Authenticate(context.Background(), "alice", "correct-pw")
	assert.NoError(t, err)
}

func TestAuthenticate_LookupFailureIsNotBadCredentials(t *testing.T) {
	f := newFixture(t)
	f.users.FindError = errors.New("connection refused")

	_, err := f.svc.Authenticate(context.Background(), "alice", "correct-pw")
	require.Error(t, err)
	assert.False(t, auth.IsAuthFailure(err))
}

func TestValidate_DisabledAfterIssue(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-pw", true, domain.RoleSales)
	ctx := context.Background()

	pair, err := f.svc.Authenticate(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	require.NoError(t, f.users.SetActive(ctx, "alice", false))

	_, err = f.svc.codec.Verify(pair.AccessToken)
	require.NoError(t, err)

	_, _, err = f.svc.Validate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, auth.ErrAccountDisabled)
}

func TestValidate_ReflectsRoleChanges(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-pw", true, domain.RoleSales)
	ctx := context.Background()

	pair, err := f.svc.Authenticate(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	require.NoError(t, f.svc.UpdateRoles(ctx, "admin", "alice", []domain.Role{domain.RoleInventory}))

	_, roles, err := f.svc.Validate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleInventory}, roles)
}

func TestValidate_DeletedPrincipal(t *testing.T) {
	f := newFixture(t)
	codec, err := auth.NewTokenCodec([]byte("service-test-secret-service-test"), auth.WithClock(f.clock.Now))
	require.NoError(t, err)
	token, _, err := codec.Issue("ghost", []string{"ADMIN"}, time.Hour)
	require.NoError(t, err)

	_, _, err = f.svc.Validate(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrPrincipalNotFound)
}

func TestValidate_RejectsRefreshToken(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-pw", true, domain.RoleSales)

	pair, err := f.svc.Authenticate(context.Background(), "alice", "correct-pw")
	require.NoError(t, err)

	_, _, err = f.svc.Validate(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrMalformedToken)
}

func TestValidate_Expired(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-pw", true, domain.RoleSales)

	pair, err := f.svc.Authenticate(context.Background(), "alice", "correct-pw")
	require.NoError(t, err)

	f.clock.now = f.clock.now.Add(16 * time.Minute)
	_, _, err = f.svc.Validate(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct-pw", true, domain.RoleSales)
	ctx := context.Background()

	pair, err := f.svc.Authenticate(ctx, "alice", "correct-pw")
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	assert.ErrorIs(t, err, auth.ErrMalformedToken)

	f.clock.now = f.clock.now.Add(30 * time.Minute)
	refreshed, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, f.clock.now.Add(15*time.Minute), refreshed.ExpiresAt)

	subject, _, err := f.svc.Validate(ctx, refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	require.NoError(t, f.users.SetActive(ctx, "alice", false))
	_, err = f.svc.Refresh(ctx, refreshed.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	assert.ErrorIs(t, err, auth.ErrAccountDisabled)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Register(ctx, RegisterInput{
		FirstName: "Dana",
		LastName:  "Scully",
		Username:  "dana",
		Email:     "dana@example.com",
		Password:  "Sup3r$ecret",
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{DefaultRole}, pair.Roles)

	stored := f.users.Get("dana")
	require.NotNil(t, stored)
	assert.True(t, stored.Active)
	assert.NoError(t, auth.CheckPassword(stored.PasswordHash, "Sup3r$ecret"))

	_, err = f.svc.Register(ctx, RegisterInput{Username: "dana", Email: "other@example.com", Password: "x"})
	assert.Equal(t, http.StatusConflict, apperrors.ToDomainError(err).HTTPStatus)

	_, err = f.svc.Register(ctx, RegisterInput{Username: "dana2", Email: "DANA@example.com", Password: "x"})
	assert.Equal(t, http.StatusConflict, apperrors.ToDomainError(err).HTTPStatus)

	assert.Contains(t, f.events.Types(), events.EventUserRegistered)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "old-pw", true, domain.RoleSales)
	ctx := context.Background()

	err := f.svc.ChangePassword(ctx, "alice", "not-the-old-pw", "new-pw")
	de := apperrors.ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
	assert.Contains(t, de.Fields, "current_password")

	require.NoError(t, f.svc.ChangePassword(ctx, "alice", "old-pw", "new-pw"))
	_, err = f.svc.Authenticate(ctx, "alice", "new-pw")
	assert.NoError(t, err)
}

func TestUpdateRolesAndStatus(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "admin", "pw", true, domain.RoleAdmin)
	f.addUser(t, "bob", "pw", true, domain.RoleSales)
	ctx := context.Background()

	err := f.svc.UpdateRoles(ctx, "admin", "bob", nil)
	assert.Equal(t, http.StatusBadRequest, apperrors.ToDomainError(err).HTTPStatus)

	err = f.svc.UpdateRoles(ctx, "admin", "ghost", []domain.Role{domain.RoleSales})
	assert.Equal(t, http.StatusNotFound, apperrors.ToDomainError(err).HTTPStatus)

	err = f.svc.SetActive(ctx, "admin", "admin", false)
	assert.Equal(t, http.StatusBadRequest, apperrors.ToDomainError(err).HTTPStatus)

	require.NoError(t, f.svc.SetActive(ctx, "admin", "bob", false))
	assert.False(t, f.users.Get("bob").Active)

	last := f.events.Events[len(f.events.Events)-1]
	assert.Equal(t, events.EventAccountStatusSet, last.Type)
	assert.Equal(t, "admin", last.Actor)
	assert.Equal(t, events.AccountStatusPayload{Active: false}, last.Payload)
}

func TestProfile(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "pw", true, domain.RoleSales)

	user, err := f.svc.Profile(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	_, err = f.svc.Profile(context.Background(), "ghost")
	assert.Equal(t, http.StatusNotFound, apperrors.ToDomainError(err).HTTPStatus)
}
