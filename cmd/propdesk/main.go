package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"propdesk/apiclient"
	"propdesk/config"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Command annotations read by the root pre-run hook.
const (
	skipBootstrap = "skip-bootstrap"
	needsSession  = "needs-session"
)

var (
	errNotSignedIn = errors.New("not signed in, run `propdesk login`")
	errNoDirectory = errors.New("identity directory disabled, set identity.enabled and identity.database_url")
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// cli carries flags and the per-run app between cobra hooks.
type cli struct {
	out    io.Writer
	errOut io.Writer
	prompt prompter

	configFile  string
	baseURL     string
	tokenStore  string
	logLevel    string
	metricsFile string

	app *app
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	c := &cli{out: out, errOut: errOut, prompt: newPrompter(in, errOut)}

	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if stopErr := c.stop(); err == nil {
		err = stopErr
	}
	if err != nil {
		report(errOut, err)
		return 1
	}
	return 0
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "propdesk",
		Short: "Property management dashboard from the command line",
		Long: `propdesk signs in to the property management dashboard API and
works with its companies and users.

Settings come from PROPDESK_* environment variables, a .env file in the
working directory, or --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if annotated(cmd, skipBootstrap) {
				return nil
			}
			if err := c.start(cmd.Context()); err != nil {
				return err
			}
			if annotated(cmd, needsSession) {
				return c.requireSession()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "Path to a config file (yaml, json or toml)")
	flags.StringVar(&c.baseURL, "api-url", "", "Override api.base_url")
	flags.StringVar(&c.tokenStore, "token-store", "", "Override token.store (file, redis, memory)")
	flags.StringVar(&c.logLevel, "log-level", "", "Override log.level")
	flags.StringVar(&c.metricsFile, "metrics-file", "", "Write client metrics in Prometheus text format on exit")

	root.AddCommand(
		loginCmd(c),
		verifyCmd(c),
		otpCmd(c),
		logoutCmd(c),
		whoamiCmd(c),
		companiesCmd(c),
		usersCmd(c),
		summaryCmd(c),
		versionCmd(c),
	)
	return root
}

func (c *cli) start(ctx context.Context) error {
	cfg, err := config.Load(c.configFile)
	if err != nil {
		return err
	}
	if c.baseURL != "" {
		cfg.API.BaseURL = c.baseURL
	}
	if c.tokenStore != "" {
		cfg.Token.Store = c.tokenStore
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	c.app = a
	a.start(ctx)
	return nil
}

func (c *cli) stop() error {
	if c.app == nil {
		return nil
	}
	var errs []error
	if c.metricsFile != "" {
		if err := prometheus.WriteToTextfile(c.metricsFile, c.app.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	errs = append(errs, c.app.Close())
	c.app = nil
	return errors.Join(errs...)
}

// annotated reports whether cmd or one of its parents carries key.
func annotated(cmd *cobra.Command, key string) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		if cmd.Annotations[key] == "true" {
			return true
		}
	}
	return false
}

func (c *cli) requireSession() error {
	if !c.app.session.Snapshot().IsAuthenticated() {
		return errNotSignedIn
	}
	return nil
}

func report(w io.Writer, err error) {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		fmt.Fprintln(w, "session expired, run `propdesk login`")
		return
	}
	fmt.Fprintf(w, "Error: %s\n", err)

	apiErr, ok := apiclient.AsError(err)
	if !ok || len(apiErr.FieldErrors) == 0 {
		return
	}
	fields := make([]string, 0, len(apiErr.FieldErrors))
	for f := range apiErr.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		for _, msg := range apiErr.FieldErrors[f] {
			fmt.Fprintf(w, "  %s: %s\n", f, msg)
		}
	}
}
