package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/inventory-auth/internal/domain"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateUser is returned when the username or email is already taken.
	ErrDuplicateUser = errors.New("username or email already registered")
)

const uniqueViolation = "23505"

// UserRepository defines persistence access for user accounts and their roles.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, username, passwordHash string) error
	UpdateRoles(ctx context.Context, username string, roles []domain.Role) error
	SetActive(ctx context.Context, username string, active bool) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const insertUser = `
        INSERT INTO users (first_name, last_name, username, email, password_hash, active)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := tx.QueryRow(ctx, insertUser,
		user.FirstName,
		user.LastName,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Active,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return mapWriteError(err)
	}

	if err := insertRoles(ctx, tx, user.ID, user.Roles); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `
        SELECT u.id, u.first_name, u.last_name, u.username, u.email, u.password_hash, u.active,
               COALESCE(array_agg(ur.role_name ORDER BY ur.role_name) FILTER (WHERE ur.role_name IS NOT NULL), '{}') AS roles,
               u.created_at, u.updated_at
        FROM users u
        LEFT JOIN user_roles ur ON ur.user_id = u.id
        WHERE u.username=$1
        GROUP BY u.id`

	var (
		user  domain.User
		roles []string
	)
	if err := r.pool.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Active,
		&roles,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	user.Roles = make([]domain.Role, 0, len(roles))
	for _, name := range roles {
		user.Roles = append(user.Roles, domain.Role(name))
	}
	return &user, nil
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username=$1)`, username).Scan(&exists)
	return exists, err
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE lower(email)=lower($1))`, email).Scan(&exists)
	return exists, err
}

func (r *userRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	const query = `UPDATE users SET password_hash=$1, updated_at=NOW() WHERE username=$2`

	cmd, err := r.pool.Exec(ctx, query, passwordHash, username)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UpdateRoles(ctx context.Context, username string, roles []domain.Role) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var userID string
	if err := tx.QueryRow(ctx,
		`UPDATE users SET updated_at=NOW() WHERE username=$1 RETURNING id`, username,
	).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("clear roles: %w", err)
	}
	if err := insertRoles(ctx, tx, userID, roles); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *userRepository) SetActive(ctx context.Context, username string, active bool) error {
	const query = `UPDATE users SET active=$1, updated_at=NOW() WHERE username=$2`

	cmd, err := r.pool.Exec(ctx, query, active, username)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func insertRoles(ctx context.Context, tx pgx.Tx, userID string, roles []domain.Role) error {
	if len(roles) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, role := range roles {
		batch.Queue(`INSERT INTO user_roles (user_id, role_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, string(role))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("assign roles: %w", err)
	}
	return nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateUser
	}
	return err
}
