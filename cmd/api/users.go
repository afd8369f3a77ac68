package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/inventory-auth/internal/auth"
	"github.com/spec-kit/inventory-auth/internal/config"
	"github.com/spec-kit/inventory-auth/internal/domain"
	"github.com/spec-kit/inventory-auth/internal/observability"
	"github.com/spec-kit/inventory-auth/internal/persistence"
	"github.com/spec-kit/inventory-auth/internal/repository"
)

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(createUserCmd())
	return cmd
}

type createUserOptions struct {
	username  string
	email     string
	firstName string
	lastName  string
	password  string
	roles     []string
	stdin     bool
}

func createUserCmd() *cobra.Command {
	var opts createUserOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user with the given roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreateUser(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.username, "username", "", "Login name (required)")
	cmd.Flags().StringVar(&opts.email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&opts.firstName, "first-name", "Admin", "First name")
	cmd.Flags().StringVar(&opts.lastName, "last-name", "User", "Last name")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password (prefer --stdin)")
	cmd.Flags().StringSliceVar(&opts.roles, "role", []string{string(domain.RoleAdmin)}, "Role to assign (repeatable)")
	cmd.Flags().BoolVar(&opts.stdin, "stdin", false, "Read the password from stdin")
	return cmd
}

func runCreateUser(ctx context.Context, opts createUserOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.username == "" {
		return errors.New("--username is required")
	}
	if _, err := mail.ParseAddress(opts.email); err != nil {
		return fmt.Errorf("invalid --email: %w", err)
	}

	roles, err := parseRoles(opts.roles)
	if err != nil {
		return err
	}

	password := opts.password
	if opts.stdin {
		fmt.Print("Enter password: ")
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			password = strings.TrimSpace(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}
	if password == "" {
		return errors.New("password is required (use --password or --stdin)")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	hash, err := auth.HashPassword(password, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	user := &domain.User{
		FirstName:    opts.firstName,
		LastName:     opts.lastName,
		Username:     opts.username,
		Email:        opts.email,
		PasswordHash: hash,
		Active:       true,
		Roles:        roles,
	}
	if err := repository.NewUserRepository(pg.Pool()).Create(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	logger.Info("user created", zap.String("username", user.Username), zap.Strings("roles", domain.RoleNames(roles)))
	return nil
}

func parseRoles(names []string) ([]domain.Role, error) {
	if len(names) == 0 {
		return nil, errors.New("at least one --role is required")
	}
	roles := make([]domain.Role, 0, len(names))
	var invalid []string
	for _, name := range names {
		role, err := domain.ParseRole(name)
		if err != nil {
			invalid = append(invalid, name)
			continue
		}
		roles = append(roles, role)
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid role(s): %s; valid roles are: %s",
			strings.Join(invalid, ", "), strings.Join(domain.RoleNames(domain.AllRoles()), ", "))
	}
	return roles, nil
}
