package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var configDir string

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("PLACEPREP_CONFIG_DIR")
	if envConfig == "" {
		envConfig = "configs"
	}

	serve := NewServeCmd(&configDir)
	cmd := &cobra.Command{
		Use:          "placeprep",
		Short:        "PlacePrep exam and practice backend",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	cmd.Flags().AddFlagSet(serve.Flags())

	cmd.PersistentFlags().StringVar(&configDir, "config", envConfig, "directory holding config.yaml")
	cmd.AddCommand(serve)
	cmd.AddCommand(NewMigrateCmd(&configDir))
	cmd.AddCommand(NewSweepCmd(&configDir))
	return cmd
}
