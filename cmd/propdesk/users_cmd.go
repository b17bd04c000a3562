package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"propdesk/users"
)

func usersCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "users",
		Aliases:     []string{"user"},
		Short:       "Administer dashboard users",
		Annotations: map[string]string{needsSession: "true"},
	}

	cmd.AddCommand(
		usersListCmd(c),
		usersGetCmd(c),
		usersCreateCmd(c),
		usersUpdateCmd(c),
		usersDeleteCmd(c),
	)
	return cmd
}

func usersListCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := c.app.users.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(c.out, list)
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tTYPE\tROLES")
			for _, u := range list {
				roles := make([]string, len(u.Roles))
				for i, r := range u.Roles {
					roles[i] = r.Name
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
					u.ID, u.DisplayName(), u.Email, orDash(u.UserType), orDash(strings.Join(roles, ",")))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func usersGetCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			u, err := c.app.users.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(c.out, u)
			}
			printUser(c.out, u)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func usersCreateCmd(c *cli) *cobra.Command {
	var in users.CreateInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a user",
		Long:  "Register a user. The initial password is read without echo.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := c.prompt.Secret("Password for new user: ")
			if err != nil {
				return err
			}
			in.Password = password

			u, err := c.app.users.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "created user %d (%s)\n", u.ID, u.Email)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&in.FirstName, "first-name", "", "First name")
	fs.StringVar(&in.LastName, "last-name", "", "Last name")
	fs.StringVar(&in.Email, "email", "", "Email")
	fs.StringVar(&in.UserType, "type", users.DefaultType, "User type (ADMIN, CLIENT, STAFF)")
	return cmd
}

// usersUpdateCmd starts from the stored user so unset flags keep their values.
func usersUpdateCmd(c *cli) *cobra.Command {
	var (
		changes     users.UpdateInput
		setPassword bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			current, err := c.app.users.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			in := users.UpdateInput{
				FirstName: current.FirstName,
				LastName:  current.LastName,
				Email:     current.Email,
				UserType:  current.UserType,
			}
			fs := cmd.Flags()
			if fs.Changed("first-name") {
				in.FirstName = changes.FirstName
			}
			if fs.Changed("last-name") {
				in.LastName = changes.LastName
			}
			if fs.Changed("email") {
				in.Email = changes.Email
			}
			if fs.Changed("type") {
				in.UserType = changes.UserType
			}
			if setPassword {
				if in.Password, err = c.prompt.Secret("New password: "); err != nil {
					return err
				}
			}

			u, err := c.app.users.Update(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "updated user %d (%s)\n", u.ID, u.Email)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&changes.FirstName, "first-name", "", "First name")
	fs.StringVar(&changes.LastName, "last-name", "", "Last name")
	fs.StringVar(&changes.Email, "email", "", "Email")
	fs.StringVar(&changes.UserType, "type", "", "User type (ADMIN, CLIENT, STAFF)")
	fs.BoolVar(&setPassword, "password", false, "Prompt for a new password")
	return cmd
}

func usersDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.app.users.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "deleted user %d\n", id)
			return nil
		},
	}
}
