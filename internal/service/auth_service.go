package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/inventory-auth/internal/auth"
	"github.com/spec-kit/inventory-auth/internal/config"
	"github.com/spec-kit/inventory-auth/internal/domain"
	"github.com/spec-kit/inventory-auth/internal/events"
	"github.com/spec-kit/inventory-auth/internal/repository"
	apperrors "github.com/spec-kit/inventory-auth/pkg/errorutil"
)

// DefaultRole is assigned to self-registered accounts.
const DefaultRole = domain.RoleSales

// TokenPair is returned by every successful login, registration or refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
	Subject          string
	Roles            []domain.Role
}

// RegisterInput carries the fields for a new account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
}

// AuthDependencies encapsulates collaborators of the auth service. Attempts and Events are optional.
type AuthDependencies struct {
	Users    repository.UserRepository
	Attempts repository.LoginAttemptRepository
	Events   events.Dispatcher
	Logger   *zap.Logger
}

// AuthService issues tokens for credentials and validates presented tokens.
type AuthService struct {
	users      repository.UserRepository
	principals *auth.PrincipalStore
	codec      *auth.TokenCodec
	attempts   repository.LoginAttemptRepository
	events     events.Dispatcher
	logger     *zap.Logger

	accessTTL   time.Duration
	refreshTTL  time.Duration
	bcryptCost  int
	maxAttempts int64
	lockout     time.Duration

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService builds the service around an already configured codec.
func NewAuthService(cfg config.AuthConfig, codec *auth.TokenCodec, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:       deps.Users,
		principals:  auth.NewPrincipalStore(deps.Users, logger),
		codec:       codec,
		attempts:    deps.Attempts,
		events:      deps.Events,
		logger:      logger,
		accessTTL:   cfg.AccessTokenTTL(),
		refreshTTL:  cfg.RefreshTokenTTL(),
		bcryptCost:  cfg.BcryptCost,
		maxAttempts: int64(cfg.LoginMaxAttempts),
		lockout:     cfg.LoginLockout(),
	}
}

// Authenticate checks a username/password pair and issues a token pair.
// Unknown users and wrong passwords both fail with auth.ErrBadCredentials.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*TokenPair, error) {
	if err := s.checkThrottle(ctx, username); err != nil {
		s.publish(ctx, events.NewEvent(events.EventLoginFailed, username, events.LoginFailedPayload{Reason: auth.Kind(err)}))
		return nil, err
	}

	principal, err := s.principals.FindBySubject(ctx, username)
	if err != nil {
		if !errors.Is(err, auth.ErrPrincipalNotFound) {
			return nil, err
		}
		// keep the response time of unknown users close to that of known ones
		_ = auth.CheckPassword(s.placeholderHash(), password)
		return nil, s.loginFailed(ctx, username, auth.ErrBadCredentials)
	}

	if err := auth.CheckPassword(principal.PasswordHash, password); err != nil {
		return nil, s.loginFailed(ctx, username, err)
	}
	if !principal.Active {
		return nil, s.loginFailed(ctx, username, auth.ErrAccountDisabled)
	}

	s.resetThrottle(ctx, username)
	pair, err := s.issuePair(principal)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewEvent(events.EventLoginSucceeded, principal.Subject, nil))
	return pair, nil
}

// Validate verifies a presented access token and re-resolves its subject so role
// changes and disablement since issuance take effect immediately.
func (s *AuthService) Validate(ctx context.Context, token string) (string, []domain.Role, error) {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return "", nil, err
	}
	if claims.Type != auth.TokenTypeAccess {
		return "", nil, fmt.Errorf("%w: %s token presented as access token", auth.ErrMalformedToken, claims.Type)
	}

	principal, err := s.principals.FindBySubject(ctx, claims.Subject)
	if err != nil {
		return "", nil, err
	}
	if !principal.Active {
		return "", nil, auth.ErrAccountDisabled
	}
	return principal.Subject, principal.Roles, nil
}

// Refresh exchanges a refresh token for a new token pair. Failures match auth.ErrUnauthenticated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		return nil, auth.Unauthenticated(err)
	}
	if claims.Type != auth.TokenTypeRefresh {
		return nil, auth.Unauthenticated(fmt.Errorf("%w: %s token presented as refresh token", auth.ErrMalformedToken, claims.Type))
	}

	principal, err := s.principals.FindBySubject(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, auth.ErrPrincipalNotFound) {
			return nil, auth.Unauthenticated(err)
		}
		return nil, err
	}
	if !principal.Active {
		return nil, auth.Unauthenticated(auth.ErrAccountDisabled)
	}
	return s.issuePair(principal)
}

// Register creates an account with the default role and logs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*TokenPair, error) {
	taken, err := s.users.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.NewConflict("username already in use")
	}
	taken, err = s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.NewConflict("email already registered")
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Active:       true,
		Roles:        []domain.Role{DefaultRole},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, apperrors.NewConflict("username or email already registered")
		}
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.EventUserRegistered, user.Username, nil))
	return s.issuePair(user.Principal())
}

// Profile returns the stored account for an authenticated subject.
func (s *AuthService) Profile(ctx context.Context, subject string) (*domain.User, error) {
	user, err := s.users.FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperrors.NewNotFound("user", err)
		}
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, subject, currentPassword, newPassword string) error {
	principal, err := s.principals.FindBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, auth.ErrPrincipalNotFound) {
			return apperrors.NewNotFound("user", err)
		}
		return err
	}
	if err := auth.CheckPassword(principal.PasswordHash, currentPassword); err != nil {
		return apperrors.NewValidationError(map[string]string{"current_password": "current password is incorrect"})
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, subject, hash); err != nil {
		return err
	}
	s.publish(ctx, events.NewEvent(events.EventPasswordChanged, subject, nil))
	return nil
}

// UpdateRoles replaces the roles of a user.
func (s *AuthService) UpdateRoles(ctx context.Context, actor, username string, roles []domain.Role) error {
	if len(roles) == 0 {
		return apperrors.NewValidationError(map[string]string{"roles": "at least one role is required"})
	}
	if err := s.users.UpdateRoles(ctx, username, roles); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperrors.NewNotFound("user", err)
		}
		return err
	}

	event := events.NewEvent(events.EventRolesUpdated, username, events.RolesUpdatedPayload{Roles: domain.RoleNames(roles)})
	event.Actor = actor
	s.publish(ctx, event)
	return nil
}

// SetActive enables or disables a user. Disabled users' outstanding tokens stop
// validating on their next request.
func (s *AuthService) SetActive(ctx context.Context, actor, username string, active bool) error {
	if !active && actor == username {
		return apperrors.NewValidationError(map[string]string{"active": "cannot disable your own account"})
	}
	if err := s.users.SetActive(ctx, username, active); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperrors.NewNotFound("user", err)
		}
		return err
	}

	event := events.NewEvent(events.EventAccountStatusSet, username, events.AccountStatusPayload{Active: active})
	event.Actor = actor
	s.publish(ctx, event)
	return nil
}

func (s *AuthService) issuePair(principal *domain.Principal) (*TokenPair, error) {
	access, accessExp, err := s.codec.Issue(principal.Subject, domain.RoleNames(principal.Roles), s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.codec.IssueRefresh(principal.Subject, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresAt:        accessExp,
		RefreshExpiresAt: refreshExp,
		Subject:          principal.Subject,
		Roles:            append([]domain.Role(nil), principal.Roles...),
	}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, username string, cause error) error {
	payload := events.LoginFailedPayload{Reason: auth.Kind(cause)}
	if s.throttled() {
		failures, err := s.attempts.RecordFailure(ctx, username, s.lockout)
		if err != nil {
			s.logger.Warn("record login failure", zap.Error(err))
		}
		payload.Failures = failures
	}
	s.publish(ctx, events.NewEvent(events.EventLoginFailed, username, payload))
	return cause
}

func (s *AuthService) checkThrottle(ctx context.Context, username string) error {
	if !s.throttled() {
		return nil
	}
	failures, err := s.attempts.Failures(ctx, username)
	if err != nil {
		s.logger.Warn("read login failures; allowing attempt", zap.Error(err))
		return nil
	}
	if failures >= s.maxAttempts {
		return auth.ErrTooManyAttempts
	}
	return nil
}

func (s *AuthService) resetThrottle(ctx context.Context, username string) {
	if !s.throttled() {
		return
	}
	if err := s.attempts.Reset(ctx, username); err != nil {
		s.logger.Warn("reset login failures", zap.Error(err))
	}
}

func (s *AuthService) throttled() bool {
	return s.attempts != nil && s.maxAttempts > 0
}

func (s *AuthService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		hash, err := auth.HashPassword("placeholder-password", s.bcryptCost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish auth event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}
