package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/repository"
	"github.com/stemsi/paradox-backend/internal/service"
	"golang.org/x/term"
)

const minAdminPassword = 6

// NewCreateAdminCmd provisions an admin account. With --reset an existing
// account gets the new password and role instead of failing.
func NewCreateAdminCmd() *cobra.Command {
	var (
		username string
		role     string
		reset    bool
	)

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := model.AdminRole(role)
			if r != model.AdminRoleAdmin && r != model.AdminRoleUser {
				return fmt.Errorf("role must be %q or %q", model.AdminRoleAdmin, model.AdminRoleUser)
			}

			if username == "" {
				cmd.Print("Enter Username: ")
				line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
				username = strings.TrimSpace(line)
			}
			if len(username) < 3 {
				return errors.New("username must be at least 3 characters")
			}

			password, err := readPassword(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			admins := service.NewAdminService(
				repository.NewAdminRepository(e.pool),
				service.BcryptVerifier{Cost: e.cfg.BcryptCost},
			)

			var admin *model.Admin
			if reset {
				admin, err = admins.Provision(ctx, username, password, r)
			} else {
				admin, err = admins.Create(ctx, username, password, r)
			}
			if errors.Is(err, repository.ErrDuplicateAdmin) {
				return fmt.Errorf("admin %q already exists (use --reset to overwrite)", username)
			}
			if err != nil {
				return err
			}

			cmd.Printf("Admin '%s' saved with role %s\n", admin.Username, admin.Role)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "admin username (prompted when empty)")
	cmd.Flags().StringVar(&role, "role", string(model.AdminRoleAdmin), "admin role: admin or user")
	cmd.Flags().BoolVar(&reset, "reset", false, "overwrite the password and role of an existing admin")
	return cmd
}

// readPassword prompts twice without echo. ADMIN_PASSWORD skips the prompt
// for scripted setups.
func readPassword(cmd *cobra.Command) (string, error) {
	if p := os.Getenv("ADMIN_PASSWORD"); p != "" {
		if len(p) < minAdminPassword {
			return "", fmt.Errorf("password must be at least %d characters", minAdminPassword)
		}
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal; set ADMIN_PASSWORD")
	}

	cmd.Print("Enter Password: ")
	first, err := term.ReadPassword(fd)
	cmd.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(first) < minAdminPassword {
		return "", fmt.Errorf("password must be at least %d characters", minAdminPassword)
	}

	cmd.Print("Confirm Password: ")
	second, err := term.ReadPassword(fd)
	cmd.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
