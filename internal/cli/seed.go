package cli

import (
	"fmt"

	"cmcs-backend/internal/database"
	"cmcs-backend/internal/logger"

	"github.com/spf13/cobra"
)

func NewSeedCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default users on the primary database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			primary, err := openPrimary(ctx, root.cfg, root.log)
			if err != nil {
				return err
			}
			if err := primary.Ping(ctx); err != nil {
				return fmt.Errorf("primary database unavailable: %w", err)
			}

			n, err := database.SeedDefaultUsers(logger.ContextWithLogger(ctx, root.log), primary)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d user(s)\n", n)
			return nil
		},
	}
}
