// Package worker runs the background notification jobs.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orris-inc/subsync/internal/infrastructure/adapters"
	"github.com/orris-inc/subsync/internal/infrastructure/migration"
	"github.com/orris-inc/subsync/internal/infrastructure/scheduler"
	"github.com/orris-inc/subsync/internal/interfaces/cli/app"
	"github.com/orris-inc/subsync/internal/shared/goroutine"
)

var (
	configPath  string
	autoMigrate bool
	env         string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the notification worker",
		Long: `Run the reconciliation and dispatch jobs until interrupted. With redis enabled the
worker also follows policy changes made by other instances.`,
		RunE: run,
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.Flags().StringVarP(&env, "env", "e", "production", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Run database migrations on startup")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	e, err := app.LoadEnv(configPath)
	if err != nil {
		return err
	}
	defer e.Close()

	log := e.Logger
	log.Infow("starting notification worker", "environment", env, "auto_migrate", autoMigrate)

	if autoMigrate {
		if err := migration.NewManager(env, e.Config.Database.Driver, log).Migrate(e.DB); err != nil {
			return err
		}
	}

	// Cancelled on SIGINT or SIGTERM by the root command.
	ctx := cmd.Context()

	c, err := app.NewContainer(ctx, e)
	if err != nil {
		return err
	}
	defer c.Close()

	if _, err := c.Policies.SeedDefaults(ctx, c.Clock.Now()); err != nil {
		return err
	}

	sched, err := scheduler.NewSchedulerManager(log)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := sched.RegisterReconciliationJob(c.Reconciler, e.Config.Reconciliation.Interval()); err != nil {
		return fmt.Errorf("failed to register reconciliation job: %w", err)
	}
	if err := sched.RegisterDispatchJob(c.Dispatch, e.Config.Dispatch.Interval()); err != nil {
		return fmt.Errorf("failed to register dispatch job: %w", err)
	}

	var invalidator adapters.PolicyInvalidator
	if c.PolicyCache != nil {
		invalidator = c.PolicyCache
	}
	relay := adapters.NewPolicyChangeRelay(invalidator, sched, log)
	if err := relay.RegisterLocal(c.Dispatcher); err != nil {
		return err
	}

	sched.Start()

	if c.EventBus != nil {
		goroutine.SafeGo(log, "policy-change-subscriber", func() {
			if err := c.EventBus.Subscribe(ctx, relay.HandleEnvelope); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorw("event subscription stopped", "error", err)
			}
		})
	}

	log.Infow("notification worker started",
		"reconcile_interval", e.Config.Reconciliation.Interval(),
		"dispatch_interval", e.Config.Dispatch.Interval(),
	)

	<-ctx.Done()
	log.Infow("shutting down notification worker")

	if err := sched.Stop(); err != nil {
		return err
	}

	log.Infow("notification worker stopped")
	return nil
}
