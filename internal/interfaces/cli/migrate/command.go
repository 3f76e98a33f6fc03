package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orris-inc/subsync/internal/infrastructure/migration"
	"github.com/orris-inc/subsync/internal/interfaces/cli/app"
)

var (
	env        string
	configPath string
	steps      int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Manage database migrations including running migrations, rolling them back and checking status.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "production", "Environment (development, test, production)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")

	cmd.AddCommand(
		newUpCommand(),
		newDownCommand(),
		newStatusCommand(),
	)

	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		Long:  `Apply all pending database migrations to bring the database schema up to date.`,
		RunE:  runUp,
	}
}

func newDownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		Long:  `Rollback a specified number of database migrations.`,
		RunE:  runDown,
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Long:  `Display the current migration version and status of the database.`,
		RunE:  runStatus,
	}
}

func runUp(cmd *cobra.Command, args []string) error {
	e, err := app.LoadEnv(configPath)
	if err != nil {
		return err
	}
	defer e.Close()

	e.Logger.Infow("running up migrations", "environment", env)

	manager := migration.NewManager(env, e.Config.Database.Driver, e.Logger)
	if err := manager.Migrate(e.DB); err != nil {
		return err
	}

	e.Logger.Infow("migrations completed successfully")
	return nil
}

func runDown(cmd *cobra.Command, args []string) error {
	e, err := app.LoadEnv(configPath)
	if err != nil {
		return err
	}
	defer e.Close()

	e.Logger.Infow("running down migrations", "environment", env, "steps", steps)

	goose, err := migration.NewManager(env, e.Config.Database.Driver, e.Logger).Goose()
	if err != nil {
		return fmt.Errorf("down migration is only supported with goose strategy: %w", err)
	}
	if err := goose.MigrateDown(e.DB, steps); err != nil {
		e.Logger.Errorw("down migration failed", "error", err)
		return fmt.Errorf("down migration failed: %w", err)
	}

	e.Logger.Infow("down migration completed successfully")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := app.LoadEnv(configPath)
	if err != nil {
		return err
	}
	defer e.Close()

	goose, err := migration.NewManager(env, e.Config.Database.Driver, e.Logger).Goose()
	if err != nil {
		return fmt.Errorf("status check is only supported with goose strategy: %w", err)
	}

	version, err := goose.GetVersion(e.DB)
	if err != nil {
		e.Logger.Errorw("failed to get migration version", "error", err)
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nMigration Status:\n")
	fmt.Fprintf(out, "  Environment:     %s\n", env)
	fmt.Fprintf(out, "  Driver:          %s\n", e.Config.Database.Driver)
	fmt.Fprintf(out, "  Current Version: %d\n", version)

	if err := goose.Status(e.DB); err != nil {
		e.Logger.Errorw("failed to get detailed status", "error", err)
		return fmt.Errorf("failed to get detailed status: %w", err)
	}
	return nil
}
