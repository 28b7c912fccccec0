package cli

import (
	"placeprep_backend/internal/app"
	"placeprep_backend/internal/config"
	"placeprep_backend/pkg/logger"

	"github.com/spf13/cobra"
)

// NewMigrateCmd applies database migrations and exits.
func NewMigrateCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(*configDir)
		},
	}
}

func runMigrations(configDir string) error {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return err
	}
	cfg.ForceMigrate = true
	cfg.MigrateOnly = true

	a, err := app.NewApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Log.Info("Database migrations applied")
	return nil
}
