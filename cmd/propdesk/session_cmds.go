package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"propdesk/auth"
)

func loginCmd(c *cli) *cobra.Command {
	var email, code string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Long: `Sign in with email and password. The password is read without echo.

When the account has two-factor authentication enabled, the verification
code is asked for in the same run unless --code is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var err error
			if email == "" {
				if email, err = c.prompt.Line("Email: "); err != nil {
					return err
				}
			}
			password, err := c.prompt.Secret("Password: ")
			if err != nil {
				return err
			}

			res, err := c.app.session.Login(ctx, auth.Credentials{Email: email, Password: password})
			if err != nil {
				return err
			}
			if res.Pending2FA {
				msg := res.Message
				if msg == "" {
					msg = "A verification code has been sent."
				}
				fmt.Fprintln(c.errOut, msg)
				if code == "" {
					if code, err = c.prompt.Line("Verification code: "); err != nil {
						return err
					}
				}
				if _, err := c.app.session.Verify2FA(ctx, auth.TwoFactorChallenge{Code: code}); err != nil {
					return err
				}
			}
			c.printSignedIn()
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVar(&code, "code", "", "Verification code, if already known")
	return cmd
}

func verifyCmd(c *cli) *cobra.Command {
	var userID, code string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Complete a pending two-factor sign-in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if code == "" {
				if code, err = c.prompt.Line("Verification code: "); err != nil {
					return err
				}
			}
			if _, err := c.app.session.Verify2FA(cmd.Context(), auth.TwoFactorChallenge{UserID: userID, Code: code}); err != nil {
				return err
			}
			c.printSignedIn()
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "User id returned by login, usually the email")
	cmd.Flags().StringVar(&code, "code", "", "Verification code")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func otpCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "otp <user-id>",
		Short: "Issue a two-factor verification code",
		Long: `Issue a six digit verification code for a user, valid for ten minutes.
The code is written to the identity directory and printed.

Needs identity.enabled and identity.database_url.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.app.otp == nil {
				return errNoDirectory
			}
			code, err := c.app.otp.GenerateOTP(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, code)
			return nil
		},
	}
}

func logoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.app.session.Logout(cmd.Context())
			fmt.Fprintln(c.out, "signed out")
			if err != nil {
				return fmt.Errorf("remote sign-out: %w", err)
			}
			return nil
		},
	}
}

func whoamiCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := c.app.session.Snapshot()
			if !snap.IsAuthenticated() {
				fmt.Fprintln(c.out, "not signed in")
				return nil
			}
			if asJSON {
				return writeJSON(c.out, snap.User)
			}
			printUser(c.out, *snap.User)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func (c *cli) printSignedIn() {
	snap := c.app.session.Snapshot()
	if snap.User == nil {
		fmt.Fprintln(c.out, "signed in")
		return
	}
	fmt.Fprintf(c.out, "signed in as %s\n", snap.User.DisplayName())
}

func printUser(w io.Writer, u auth.User) {
	fmt.Fprintf(w, "ID:     %d\n", u.ID)
	fmt.Fprintf(w, "Name:   %s\n", u.DisplayName())
	fmt.Fprintf(w, "Email:  %s\n", u.Email)
	if u.UserType != "" {
		fmt.Fprintf(w, "Type:   %s\n", u.UserType)
	}
	if len(u.Roles) > 0 {
		names := make([]string, len(u.Roles))
		for i, r := range u.Roles {
			names[i] = r.Name
		}
		fmt.Fprintf(w, "Roles:  %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(w, "2FA:    %t\n", u.TwoFactorEnabled)
}
