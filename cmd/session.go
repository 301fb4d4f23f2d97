package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/core/kvstore"
	"github.com/frahmantamala/expense-approval/internal/user"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and remember the session for later commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		app, err := newApp(ctx, cfg, appOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		password := loginPassword
		if password == "" {
			if password, err = promptPassword(); err != nil {
				return err
			}
		}

		session, err := app.Auth.Login(ctx, auth.LoginDTO{Email: loginEmail, Password: password})
		if err != nil {
			return err
		}

		sessions, err := openSessions(ctx, cfg)
		if err != nil {
			return err
		}
		if err := sessions.Save(ctx, *session); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", session.User.Name, session.User.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		sessions, err := openSessions(ctx, cfg)
		if err != nil {
			return err
		}
		if err := sessions.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		app, err := newApp(ctx, cfg, appOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		u, err := sessionUser(ctx, cfg, app.Auth)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\nrole: %s\ndepartment: %s\n", u.Name, u.Email, u.Role, u.Department)
		return nil
	},
}

func openSessions(ctx context.Context, cfg *internal.Config) (*auth.SessionStore, error) {
	store, err := kvstore.New(ctx, cfg.Storage.SessionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	return auth.NewSessionStore(store), nil
}

// sessionUser resolves the saved session through its token.
func sessionUser(ctx context.Context, cfg *internal.Config, authn *auth.Service) (user.User, error) {
	sessions, err := openSessions(ctx, cfg)
	if err != nil {
		return user.User{}, err
	}
	u, err := authn.Resume(ctx, sessions)
	if err != nil {
		return user.User{}, err
	}
	if u == nil {
		return user.User{}, errors.New("not logged in, run the login command first")
	}
	return *u, nil
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password, prompted when empty")
	_ = loginCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}
