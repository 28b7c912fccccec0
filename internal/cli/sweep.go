package cli

import (
	"context"
	"fmt"
	"time"

	"placeprep_backend/internal/app"
	"placeprep_backend/internal/config"

	"github.com/spf13/cobra"
)

// NewSweepCmd runs a single contest housekeeping pass: auto-submitting open participations
// of ended contests, restoring question visibility and sending start reminders.
func NewSweepCmd(configDir *string) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one contest sweep and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runSweep(ctx, cmd, *configDir)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "abort the sweep after this long")
	return cmd
}

func runSweep(ctx context.Context, cmd *cobra.Command, configDir string) error {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return err
	}

	a, err := app.NewApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Sweep(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "contests:           %d\n", report.Contests)
	fmt.Fprintf(out, "closed:             %d\n", report.Closed)
	fmt.Fprintf(out, "skipped:            %d\n", report.Skipped)
	fmt.Fprintf(out, "failed:             %d\n", report.Failed)
	fmt.Fprintf(out, "questions restored: %d\n", report.QuestionsRestored)
	fmt.Fprintf(out, "reminders:          %d\n", report.Reminders)
	return nil
}
