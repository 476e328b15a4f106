package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/aretw0/crosscall"
	"github.com/aretw0/crosscall/internal/cli"
	"github.com/aretw0/crosscall/internal/presentation/tui"
	adapter "github.com/aretw0/crosscall/pkg/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the host and exposes the deployed accounts over HTTP.

Transactions are submitted with POST /v1/accounts/{account}/call/{method}.
Receipts are polled at /v1/receipts/{id} or streamed from /v1/receipts/{id}/events.
Prometheus metrics are served at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, debug, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.HTTP.Port, _ = cmd.Flags().GetInt("port")
		}
		quiet, _ := cmd.Flags().GetBool("quiet")
		remote, _ := cmd.Flags().GetString("remote-greeter")

		opts := cli.Options{Debug: debug}
		if remote != "" {
			opts.Greeter = adapter.NewRemoteContract(remote, cfg.HelloAccount)
		}

		rt, err := cli.Build(cmd.Context(), cfg, logger, opts)
		if err != nil {
			return err
		}
		defer rt.Close()

		handler := adapter.NewServer(rt.Deployment.Host, rt.Deployment.Registry,
			adapter.WithLogger(logger),
			adapter.WithStreams(rt.Streams),
			adapter.WithMetrics(rt.Metrics),
		).Handler()

		srv := &http.Server{
			Addr:    ":" + strconv.Itoa(cfg.HTTP.Port),
			Handler: handler,
		}

		if !quiet {
			tui.PrintBanner(os.Stderr, crosscall.Version)
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting crosscall server", "addr", srv.Addr, "self", cfg.Self, "store", cfg.Store.Driver)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("start shutdown", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			// Let in-flight transactions reach their continuations.
			if err := rt.Deployment.Host.Drain(ctx); err != nil {
				logger.Warn("pending transactions abandoned", "err", err)
			}
			logger.Info("crosscall server stopped gracefully")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides http.port)")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
	serveCmd.Flags().String("remote-greeter", "", "Base URL of a crosscall server hosting the greeting account")
}
