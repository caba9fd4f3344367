package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/KYB-Sentinel/internal/config"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/database/postgres"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
)

// NewMigrateCmd builds the migrate command.  The worker migrates on startup
// anyway; this exists for running migrations ahead of a deploy.
func NewMigrateCmd(opts *RootOptions) *cobra.Command {
	var migrationPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}

			logger, err := logging.NewLogger(cfg.Log)
			if err != nil {
				return err
			}

			conn, err := postgres.NewConnection(cfg.Database, logger.Named("kybctl"))
			if err != nil {
				return err
			}
			defer conn.Close()

			dir := migrationPath
			if dir == "" {
				dir = cfg.Database.MigrationPath
			}
			if err := conn.RunMigrations(dir); err != nil {
				return err
			}
			printSuccess("migrations applied from %s", dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&migrationPath, "path", "", "migrations directory (default from config)")
	return cmd
}
