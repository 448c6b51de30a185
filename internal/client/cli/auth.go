package cli

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/echolater/internal/common"
)

// askEmail takes the email from the first positional argument or, when absent,
// prompts for it on the App reader. An empty answer is an error.
func askEmail(a *App, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	email, err := getSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return "", err
	}
	if email == "" {
		return "", errors.New("email is required")
	}
	return email, nil
}

// registerCmd builds "register": it prompts for the password twice, creates the
// account and stores the returned session.
//
// Both password buffers are wiped before returning. A mismatch is reported
// without contacting the server.
func registerCmd(app func() *App) *cobra.Command {
	var nickname string

	cmd := &cobra.Command{
		Use:   "register [email]",
		Short: "Create an account and log in",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			email, err := askEmail(a, args)
			if err != nil {
				return err
			}

			password, err := getPassword(a.reader, "Password", a.out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			confirm, err := getPassword(a.reader, "Repeat password", a.out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(confirm)

			if !bytes.Equal(password, confirm) {
				return errors.New("passwords do not match")
			}

			u, err := a.authService.Register(cmd.Context(), email, password, nickname)
			if err != nil {
				return err
			}
			a.printf("Registered and logged in as %s\n", u.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&nickname, "nickname", "n", "", "display name")
	return cmd
}

// loginCmd builds "login". On success the token pair is saved in the session
// database so later invocations do not prompt again. The password is wiped
// before returning.
func loginCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login [email]",
		Short: "Log in and remember the session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			email, err := askEmail(a, args)
			if err != nil {
				return err
			}

			password, err := getPassword(a.reader, "Password", a.out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			u, err := a.authService.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			a.printf("Logged in as %s\n", u.Email)
			return nil
		},
	}
}

// logoutCmd builds "logout". The local session is forgotten even when the server
// cannot be reached; the error is still reported.
func logoutCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget it locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			if err := a.authService.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			a.printf("Logged out\n")
			return nil
		},
	}
}
