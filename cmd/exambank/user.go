package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/exambank/internal/model"
	"github.com/pavelanni/exambank/internal/store"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(userAddCmd())
	return cmd
}

func userAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add USERNAME",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(1),
		RunE:  runUserAdd,
	}
	f := cmd.Flags()
	addDBFlags(f)
	f.String("password", "", "Password for the new user (or set EXAMBANK_PASSWORD)")
	f.String("display-name", "", "Display name (defaults to the username)")
	f.String("role", string(model.UserRoleStudent), "Role (student, teacher, admin)")
	addLogFlags(f)
	return cmd
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	v, db, err := openStore(cmd)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	u, err := newUser(args[0], v.GetString("display-name"), v.GetString("password"), model.UserRole(v.GetString("role")))
	if err != nil {
		return err
	}
	id, err := db.CreateUser(cmd.Context(), u)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return fmt.Errorf("user %q already exists", u.Username)
		}
		return fmt.Errorf("create user: %w", err)
	}
	slog.Info("user added", "id", id, "username", u.Username, "role", u.Role)
	return nil
}

// newUser validates the account fields and hashes the password.
func newUser(username, displayName, password string, role model.UserRole) (model.User, error) {
	switch role {
	case model.UserRoleStudent, model.UserRoleTeacher, model.UserRoleAdmin:
	default:
		return model.User{}, fmt.Errorf("unknown role %q", role)
	}
	if len(password) < 8 {
		return model.User{}, fmt.Errorf("password must be at least 8 characters")
	}
	if displayName == "" {
		displayName = username
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	return model.User{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}, nil
}
