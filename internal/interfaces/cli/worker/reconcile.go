package worker

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orris-inc/subsync/internal/interfaces/cli/app"
)

var dispatchAfter bool

// NewReconcileCommand runs one reconciliation pass in the foreground.
func NewReconcileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile notification tasks with the current policy",
		Long:  `Resynchronize the notification tasks of every subscription whose marker predates the last policy change.`,
		RunE:  runReconcile,
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.Flags().BoolVar(&dispatchAfter, "dispatch", false, "Deliver due notifications after reconciling")

	return cmd
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return app.WithContainer(ctx, configPath, func(c *app.Container) error {
		return reconcileOnce(cmd, c)
	})
}

func reconcileOnce(cmd *cobra.Command, c *app.Container) error {
	ctx := cmd.Context()

	pending, err := c.Reconciler.PendingCount(ctx)
	if err != nil {
		return err
	}

	processed, err := c.Reconciler.Execute(ctx)
	if err != nil {
		return fmt.Errorf("reconciliation stopped after %d subscriptions: %w", processed, err)
	}

	remaining, err := c.Reconciler.PendingCount(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "pending before: %d\n", pending)
	fmt.Fprintf(out, "reconciled:     %d\n", processed)
	fmt.Fprintf(out, "pending after:  %d\n", remaining)

	if dispatchAfter {
		delivered, err := c.Dispatch.Execute(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "delivered:      %d\n", delivered)
	}
	return nil
}
