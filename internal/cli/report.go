package cli

import (
	"fmt"
	"os"

	"cmcs-backend/internal/auth"
	"cmcs-backend/internal/models"
	"cmcs-backend/internal/report"
	"cmcs-backend/internal/workflow"

	"github.com/spf13/cobra"
)

type reportOptions struct {
	output string
	month  int
	year   int
	status string
}

// NewReportCommand exports the HR claims report as an .xlsx workbook.
func NewReportCommand(root *RootOptions) *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the claims report to an .xlsx file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx, root.cfg, root.log)
			if err != nil {
				return err
			}

			operator := auth.Identity{Role: models.RoleHR, DisplayName: "cli"}
			claims, err := rt.service.Report(ctx, operator, workflow.ReportFilter{
				Month:  opts.month,
				Year:   opts.year,
				Status: models.ClaimStatus(opts.status),
			})
			if err != nil {
				return err
			}

			f, err := os.Create(opts.output)
			if err != nil {
				return err
			}
			if err := report.WriteXLSX(f, claims); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d claim(s) to %s\n", len(claims), opts.output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "claims-report.xlsx", "output file")
	cmd.Flags().IntVar(&opts.month, "month", 0, "filter by month (1-12)")
	cmd.Flags().IntVar(&opts.year, "year", 0, "filter by year")
	cmd.Flags().StringVar(&opts.status, "status", "", "filter by status")
	return cmd
}
