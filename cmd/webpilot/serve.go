package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/server"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.RequireSecrets(); err != nil {
				return fmt.Errorf("missing credentials: %w", err)
			}
			if addr != "" {
				c.cfg.Server.Addr = addr
			}

			a, err := newApp(c.cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(c.cfg.Server, a.driver, a.dispatcher, a.pool)
			serveErr := srv.ListenAndServe(ctx)

			logger := logging.NewLogger("cli")
			closeCtx, cancel := context.WithTimeout(context.Background(), c.cfg.Server.ShutdownTimeout)
			defer cancel()
			if ids := a.pool.IDs(); len(ids) > 0 {
				logger.Infof("Releasing %d browser session(s): %s", len(ids), strings.Join(ids, ", "))
			}
			if err := a.close(closeCtx); err != nil {
				logger.Warnf("Error releasing browser sessions: %v", err)
			}
			logger.Infof("Server exited")
			return serveErr
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
