package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"

	"propdesk/dashboard"
)

func summaryCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "summary",
		Short:       "Show the dashboard overview",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{needsSession: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.app.dashboard.Summary(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(c.out, s)
			}
			printSummary(c.out, s)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func printSummary(w io.Writer, s dashboard.Summary) {
	if s.User != nil {
		fmt.Fprintf(w, "Signed in as %s\n\n", s.User.DisplayName())
	}
	fmt.Fprintf(w, "Companies:  %d\n", s.Companies)
	for _, b := range s.CompaniesByStatus {
		fmt.Fprintf(w, "  %-12s %d\n", b.Key, b.Count)
	}
	fmt.Fprintf(w, "Properties: %d (%d active)\n", s.Properties, s.ActiveProperties)
	fmt.Fprintf(w, "Portfolio:  %.2f\n", s.PortfolioValue)
	fmt.Fprintf(w, "Users:      %d\n", s.Users)
	for _, b := range s.UsersByType {
		fmt.Fprintf(w, "  %-12s %d\n", b.Key, b.Count)
	}
}

func versionCmd(c *cli) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipBootstrap: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				fmt.Fprintln(c.out, version)
				return
			}
			fmt.Fprintf(c.out, "Version:    %s\n", version)
			fmt.Fprintf(c.out, "Commit:     %s\n", commit)
			fmt.Fprintf(c.out, "Built:      %s\n", date)
			fmt.Fprintf(c.out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(c.out, "OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
