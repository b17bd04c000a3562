package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"propdesk/companies"
)

func companiesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "companies",
		Aliases: []string{"company"},
		Short:   "Manage property management companies",
		Annotations: map[string]string{
			needsSession: "true",
		},
	}

	cmd.AddCommand(
		companiesListCmd(c),
		companiesGetCmd(c),
		companiesCreateCmd(c),
		companiesUpdateCmd(c),
		companiesDeleteCmd(c),
	)
	return cmd
}

func companiesListCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List companies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := c.app.companies.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(c.out, list)
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tNUMBER\tSTATUS\tPROPERTIES\tVALUE")
			for _, co := range list {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%.2f\n",
					co.ID, co.Name, co.CompanyNumber, orDash(co.Status), co.TotalProperties, co.Value())
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func companiesGetCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			co, err := c.app.companies.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(c.out, co)
			}
			printCompany(c, co)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func companiesCreateCmd(c *cli) *cobra.Command {
	var in companies.Input

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			co, err := c.app.companies.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "created company %d (%s)\n", co.ID, co.Name)
			return nil
		},
	}

	bindCompanyFlags(cmd.Flags(), &in)
	return cmd
}

// companiesUpdateCmd loads the company first so unset flags keep their
// current values.
func companiesUpdateCmd(c *cli) *cobra.Command {
	var changes companies.Input

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			current, err := c.app.companies.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			in := inputFrom(current)
			fs := cmd.Flags()
			for name, dst := range companyFields(&in) {
				if fs.Changed(name) {
					*dst = *companyFields(&changes)[name]
				}
			}

			co, err := c.app.companies.Update(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "updated company %d (%s)\n", co.ID, co.Name)
			return nil
		},
	}

	bindCompanyFlags(cmd.Flags(), &changes)
	return cmd
}

func companiesDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.app.companies.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "deleted company %d\n", id)
			return nil
		},
	}
}

var companyFlagUsage = map[string]string{
	"name":             "Company name",
	"number":           "Company registration number",
	"incorporated":     "Incorporation date",
	"sic-code":         "SIC code",
	"nature":           "Nature of business",
	"address":          "Registered address",
	"directors":        "Directors",
	"shareholding":     "Shareholding",
	"confirmation-due": "Confirmation statement due date",
	"accounts-due":     "Accounts due date",
}

func companyFields(in *companies.Input) map[string]*string {
	return map[string]*string{
		"name":             &in.Name,
		"number":           &in.CompanyNumber,
		"incorporated":     &in.IncorporationDate,
		"sic-code":         &in.SICCode,
		"nature":           &in.NatureOfBusiness,
		"address":          &in.RegisteredAddress,
		"directors":        &in.Directors,
		"shareholding":     &in.Shareholding,
		"confirmation-due": &in.ConfirmationStatementDue,
		"accounts-due":     &in.AccountsDue,
	}
}

func bindCompanyFlags(fs *pflag.FlagSet, in *companies.Input) {
	for name, dst := range companyFields(in) {
		fs.StringVar(dst, name, "", companyFlagUsage[name])
	}
}

func inputFrom(co companies.Company) companies.Input {
	return companies.Input{
		Name:                     co.Name,
		CompanyNumber:            co.CompanyNumber,
		IncorporationDate:        co.IncorporationDate,
		SICCode:                  co.SICCode,
		NatureOfBusiness:         co.NatureOfBusiness,
		RegisteredAddress:        co.RegisteredAddress,
		Directors:                co.Directors,
		Shareholding:             co.Shareholding,
		ConfirmationStatementDue: co.ConfirmationStatementDue,
		AccountsDue:              co.AccountsDue,
	}
}

func printCompany(c *cli, co companies.Company) {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", co.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", co.Name)
	fmt.Fprintf(tw, "Number:\t%s\n", co.CompanyNumber)
	fmt.Fprintf(tw, "Status:\t%s\n", orDash(co.Status))
	fmt.Fprintf(tw, "Type:\t%s\n", orDash(co.CompanyType))
	fmt.Fprintf(tw, "Incorporated:\t%s\n", orDash(co.IncorporationDate))
	fmt.Fprintf(tw, "SIC code:\t%s\n", orDash(co.SICCode))
	fmt.Fprintf(tw, "Address:\t%s\n", orDash(co.RegisteredAddress))
	fmt.Fprintf(tw, "Directors:\t%s\n", orDash(co.Directors))
	fmt.Fprintf(tw, "Accounts due:\t%s\n", orDash(co.AccountsDue))
	fmt.Fprintf(tw, "Portfolio:\t%.2f (%d/%d active)\n", co.Value(), co.ActiveProperties, co.TotalProperties)
	_ = tw.Flush()

	for _, p := range co.Properties {
		fmt.Fprintf(c.out, "  - %s [%s] %.2f\n", p.Name, orDash(p.Status), p.Value)
	}
}
