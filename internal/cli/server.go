package cli

import (
	"path/filepath"

	"placeprep_backend/internal/app"
	"placeprep_backend/internal/config"

	"github.com/spf13/cobra"
)

// NewServeCmd builds the subcommand that starts the HTTP server.
func NewServeCmd(configDir *string) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and contest scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(*configDir, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run database migrations on start even in release mode")
	return cmd
}

func runServer(configDir string, migrate bool) error {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return err
	}
	cfg.ForceMigrate = cfg.ForceMigrate || migrate

	a, err := app.NewApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Run(filepath.Join(configDir, "config.yaml"))
}
