package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/drcal/internal/adapters/http/api"
	"github.com/okian/drcal/internal/calclient"
	"github.com/okian/drcal/internal/integration"
	"github.com/okian/drcal/pkg/logger"
)

const (
	defaultSeedCount   = 20
	defaultServeAddr   = ":5001"
	serveReadTimeout   = 10 * time.Second
	serveWriteTimeout  = 30 * time.Second
	serveHeaderTimeout = 5 * time.Second
	shutdownTimeout    = 10 * time.Second
)

func newSmokeCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "smoke",
		Short: "Exercise every API operation once against a live calendar",
		Long: `smoke lists events, creates an auto and a manual test, reads and updates
the manual one, checks that an invalid submission is rejected with four
errors, then deletes the manual test and confirms it is gone. The auto
test is left in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := calclient.RunSmoke(cmd.Context(), opts.client())
			out := cmd.OutOrStdout()
			for i, s := range report.Steps {
				mark := "ok  "
				if !s.Passed {
					mark = "FAIL"
				}
				fmt.Fprintf(out, "%s %d. %s: %s\n", mark, i+1, s.Name, s.Detail)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "all %d checks passed in %s\n", len(report.Steps), report.Duration.Round(time.Millisecond))
			return nil
		},
	}
}

func newSeedCommand(opts *globalOptions) *cobra.Command {
	var count, workers int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the calendar with sample DR tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := calclient.Seed(cmd.Context(), opts.client(), count, workers)
			fmt.Fprintf(cmd.OutOrStdout(), "created %d, rejected %d, failed %d in %s\n",
				stats.Created, stats.Rejected, stats.Failed, stats.Duration.Round(time.Millisecond))
			if err != nil {
				return err
			}
			if stats.Failed > 0 {
				return fmt.Errorf("%d requests failed", stats.Failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", defaultSeedCount, "number of tests to create")
	cmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "concurrent requests")
	return cmd
}

func newServeCommand(opts *globalOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the DR test dashboard backed by the calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), addr, opts.client(), logger.Named("integration"))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultServeAddr, "listen address")
	return cmd
}

func serve(ctx context.Context, addr string, client *calclient.Client, l logger.Logger) error {
	dash, err := integration.NewServer(client, integration.WithLogger(l))
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	dash.Register(ctx, mux)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.RequestID(mux),
		ReadTimeout:       serveReadTimeout,
		WriteTimeout:      serveWriteTimeout,
		ReadHeaderTimeout: serveHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.Info(gctx, "starting dashboard", logger.String("addr", addr), logger.String("calendar", client.BaseURL()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dashboard server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
