package mocks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/inventory-auth/internal/domain"
	"github.com/spec-kit/inventory-auth/internal/events"
	"github.com/spec-kit/inventory-auth/internal/repository"
)

// MockUserRepository implements repository.UserRepository in memory for testing
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User

	// Mock responses
	FindError   error
	CreateError error

	// Call tracking
	FindCalls []string
}

// NewMockUserRepository creates an empty mock user repository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*domain.User)}
}

// Add stores a user directly, bypassing uniqueness checks
func (m *MockUserRepository) Add(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.Username] = cloneUser(user)
}

// Get returns a copy of the stored user, or nil
func (m *MockUserRepository) Get(username string) *domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if user, ok := m.users[username]; ok {
		return cloneUser(user)
	}
	return nil
}

func (m *MockUserRepository) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateError != nil {
		return m.CreateError
	}
	for _, existing := range m.users {
		if existing.Username == user.Username || strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicateUser
		}
	}

	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users[user.Username] = cloneUser(user)
	return nil
}

func (m *MockUserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FindCalls = append(m.FindCalls, username)
	if m.FindError != nil {
		return nil, m.FindError
	}
	user, ok := m.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (m *MockUserRepository) ExistsByUsername(_ context.Context, username string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.users[username]
	return ok, nil
}

func (m *MockUserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockUserRepository) UpdatePassword(_ context.Context, username, passwordHash string) error {
	return m.update(username, func(u *domain.User) { u.PasswordHash = passwordHash })
}

func (m *MockUserRepository) UpdateRoles(_ context.Context, username string, roles []domain.Role) error {
	return m.update(username, func(u *domain.User) { u.Roles = append([]domain.Role(nil), roles...) })
}

func (m *MockUserRepository) SetActive(_ context.Context, username string, active bool) error {
	return m.update(username, func(u *domain.User) { u.Active = active })
}

func (m *MockUserRepository) update(username string, apply func(*domain.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return repository.ErrUserNotFound
	}
	apply(user)
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func cloneUser(user *domain.User) *domain.User {
	clone := *user
	clone.Roles = append([]domain.Role(nil), user.Roles...)
	return &clone
}

// MockLoginAttemptRepository implements repository.LoginAttemptRepository in memory for testing.
// Windows are not enforced.
type MockLoginAttemptRepository struct {
	mu       sync.Mutex
	failures map[string]int64

	// Mock responses
	Error error
}

// NewMockLoginAttemptRepository creates an empty mock attempt counter
func NewMockLoginAttemptRepository() *MockLoginAttemptRepository {
	return &MockLoginAttemptRepository{failures: make(map[string]int64)}
}

func (m *MockLoginAttemptRepository) Failures(_ context.Context, username string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return 0, m.Error
	}
	return m.failures[strings.ToLower(username)], nil
}

func (m *MockLoginAttemptRepository) RecordFailure(_ context.Context, username string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return 0, m.Error
	}
	key := strings.ToLower(username)
	m.failures[key]++
	return m.failures[key], nil
}

func (m *MockLoginAttemptRepository) Reset(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return m.Error
	}
	delete(m.failures, strings.ToLower(username))
	return nil
}

// RecordingDispatcher implements events.Dispatcher and keeps every published event
type RecordingDispatcher struct {
	mu     sync.Mutex
	Events []events.Event
}

func (d *RecordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Events = append(d.Events, event)
	return nil
}

func (d *RecordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

// Types returns the published event types in order
func (d *RecordingDispatcher) Types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	types := make([]events.EventType, 0, len(d.Events))
	for _, event := range d.Events {
		types = append(types, event.Type)
	}
	return types
}
