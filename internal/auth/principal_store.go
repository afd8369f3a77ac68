package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/inventory-auth/internal/domain"
	"github.com/spec-kit/inventory-auth/internal/repository"
)

// UserLookup is the read capability PrincipalStore needs from the user-data store.
type UserLookup interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
}

// PrincipalStore resolves subjects into principals.
type PrincipalStore struct {
	users  UserLookup
	logger *zap.Logger
}

// NewPrincipalStore constructs a store over the given lookup.
func NewPrincipalStore(users UserLookup, logger *zap.Logger) *PrincipalStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrincipalStore{users: users, logger: logger}
}

// FindBySubject performs a single lookup and returns ErrPrincipalNotFound when the user is absent.
func (s *PrincipalStore) FindBySubject(ctx context.Context, subject string) (*domain.Principal, error) {
	user, err := s.users.FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("lookup principal: %w", err)
	}

	principal := user.Principal()
	roles := principal.Roles[:0]
	for _, role := range principal.Roles {
		parsed, err := domain.ParseRole(string(role))
		if err != nil {
			s.logger.Warn("ignoring unknown role", zap.String("subject", subject), zap.String("role", string(role)))
			continue
		}
		roles = append(roles, parsed)
	}
	principal.Roles = roles
	return principal, nil
}
