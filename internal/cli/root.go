// Package cli implements the syncctl command line.
package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/westmoney/batchsync/internal/domain"
	logpkg "github.com/westmoney/batchsync/internal/logger"
	"github.com/westmoney/batchsync/internal/transport/hubspot"
	"github.com/westmoney/batchsync/internal/usecase/batchsync"
	"github.com/westmoney/batchsync/internal/version"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitInvalid  = 1
	ExitFailures = 2
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitInvalid
}

// ClientFactory builds the external client for a run.
type ClientFactory func(cfg hubspot.Config) batchsync.Client

// Deps are the injectable collaborators of the command tree.
type Deps struct {
	NewClient ClientFactory
	NewID     func() string
	Now       func() time.Time
	LookupEnv func(string) (string, bool)
}

func defaultDeps() Deps {
	return Deps{
		NewClient: func(cfg hubspot.Config) batchsync.Client { return hubspot.New(cfg) },
		NewID:     func() string { return ulid.Make().String() },
		Now:       time.Now,
		LookupEnv: os.LookupEnv,
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	token       string
	baseURL     string
	rate        float64
	burst       int
	logLevel    string
	out         string
	failOnError bool
}

// NewRootCmd creates the syncctl root command.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(defaultDeps())
}

// NewRootCmdWithDeps creates the root command with explicit collaborators for testability.
func NewRootCmdWithDeps(deps Deps) *cobra.Command {
	var g globalFlags

	cmd := &cobra.Command{
		Use:           "syncctl",
		Short:         "Apply one field change to many CRM contacts",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `  # Grant WhatsApp consent to three contacts
  syncctl run --field whatsapp_consent --value granted --ids 101,102,103

  # Re-run only the failures of a previous run
  syncctl retry --from result.json --out retry.json`,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.token, "token", "", "HubSpot private app token (default $HUBSPOT_TOKEN)")
	pf.StringVar(&g.baseURL, "base-url", hubspot.DefaultBaseURL, "HubSpot API base URL")
	pf.Float64Var(&g.rate, "rate", 9, "max HubSpot requests per second (0 = unlimited)")
	pf.IntVar(&g.burst, "burst", 9, "rate limiter burst")
	pf.StringVar(&g.logLevel, "log-level", "", "log level on stderr (default warn)")
	pf.StringVarP(&g.out, "out", "o", "", "write the result JSON to this file instead of stdout")
	pf.BoolVar(&g.failOnError, "fail-on-error", false, "exit with code 2 when any target failed")

	cmd.AddCommand(
		newRunCmd(&g, deps),
		newRetryCmd(&g, deps),
		newFieldsCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "syncctl "+version.String())
		},
	}
}

// hubspotConfig resolves the client settings from flags and the environment.
func (g *globalFlags) hubspotConfig(deps Deps, logger *zap.Logger) (hubspot.Config, error) {
	token := g.token
	if token == "" {
		token, _ = deps.LookupEnv("HUBSPOT_TOKEN")
	}
	if token == "" {
		return hubspot.Config{}, invalid(domain.NewValidationError("token",
			"set --token or HUBSPOT_TOKEN"))
	}
	if g.rate < 0 {
		return hubspot.Config{}, invalid(domain.NewValidationError("rate", "must not be negative"))
	}
	return hubspot.Config{
		BaseURL:       g.baseURL,
		Token:         token,
		RatePerSecond: g.rate,
		Burst:         g.burst,
		Logger:        logger,
	}, nil
}

func (g *globalFlags) logger() (*zap.Logger, error) {
	l, err := logpkg.NewCLILogger(g.logLevel)
	if err != nil {
		return nil, invalid(err)
	}
	return l, nil
}

func invalid(err error) error {
	return &ExitError{Code: ExitInvalid, Err: err}
}

// finish writes the report and applies --fail-on-error.
func (g *globalFlags) finish(cmd *cobra.Command, r Report) error {
	if g.out == "" {
		if err := writeReport(cmd.OutOrStdout(), r); err != nil {
			return err
		}
	} else {
		if err := saveReport(g.out, r); err != nil {
			return err
		}
		cmd.PrintErrf("%d succeeded, %d failed; result written to %s\n", r.Success, r.Failed, g.out)
	}
	if g.failOnError && r.Failed > 0 {
		return &ExitError{Code: ExitFailures, Err: fmt.Errorf("%d of %d targets failed", r.Failed, r.Total)}
	}
	return nil
}
