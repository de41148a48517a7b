package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/drcal/internal/calclient"
	"github.com/okian/drcal/pkg/logger"
)

const (
	defaultServer  = "http://localhost:5000"
	defaultTimeout = 10 * time.Second
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	server   string
	timeout  time.Duration
	logLevel string
}

func (o *globalOptions) client() *calclient.Client {
	return calclient.New(o.server,
		calclient.WithTimeout(o.timeout),
		calclient.WithLogger(logger.Named("calclient")))
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "drclient",
		Short: "drclient - DR test calendar client",
		Long: `drclient talks to a DR test calendar over its JSON API.

It can list, create, update and delete scheduled disaster recovery tests,
run an end-to-end smoke check against a live calendar, seed it with
sample tests, and serve a small dashboard built on the same API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			return logger.SetLevelString(opts.logLevel)
		},
	}

	root.PersistentFlags().StringVar(&opts.server, "server", defaultServer, "calendar base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaultTimeout, "per-request timeout")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newListCommand(opts),
		newGetCommand(opts),
		newCreateCommand(opts),
		newScheduleCommand(opts),
		newAutoCommand(opts),
		newUpdateCommand(opts),
		newDeleteCommand(opts),
		newUpcomingCommand(opts),
		newSmokeCommand(opts),
		newSeedCommand(opts),
		newServeCommand(opts),
	)
	return root
}
