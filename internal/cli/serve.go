package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"cmcs-backend/internal/server"

	"github.com/spf13/cobra"
)

func NewServeCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := buildRuntime(ctx, root.cfg, root.log)
			if err != nil {
				return err
			}

			app := server.New(server.Deps{
				Service:     rt.service,
				Storage:     rt.store,
				JWTSecret:   root.cfg.JWTSecret,
				CORSOrigins: root.cfg.CORSOrigins,
				Log:         root.log,
			})

			errCh := make(chan error, 1)
			go func() {
				root.log.Info("server listening", "port", root.cfg.HTTPPort, "backend", rt.store.Active().Name())
				errCh <- app.Listen(":" + root.cfg.HTTPPort)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			root.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return app.ShutdownWithContext(shutdownCtx)
		},
	}
}
