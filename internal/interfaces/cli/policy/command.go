// Package policy shows and changes the notification policy.
package policy

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/orris-inc/subsync/internal/application/notification/usecases"
	"github.com/orris-inc/subsync/internal/domain/notification"
	"github.com/orris-inc/subsync/internal/interfaces/cli/app"
	"github.com/orris-inc/subsync/internal/shared/biztime"
)

var (
	configPath string

	enabled           bool
	offsetAmount      int
	offsetUnit        string
	manualRenewalMode string
	reconcileNow      bool
)

// policyView is the printed form of a policy.
type policyView struct {
	Enabled           bool   `json:"enabled"`
	OffsetAmount      int    `json:"offset_amount"`
	OffsetUnit        string `json:"offset_unit"`
	ManualRenewalMode string `json:"manual_renewal_mode"`
	LastChangedAt     string `json:"last_changed_at"`
}

func toView(p notification.Policy) policyView {
	return policyView{
		Enabled:           p.Enabled,
		OffsetAmount:      p.Offset.Amount,
		OffsetUnit:        string(p.Offset.Unit),
		ManualRenewalMode: string(p.ManualRenewalMode),
		LastChangedAt:     biztime.FormatMySQL(p.LastChangedAt),
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Notification policy",
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")

	cmd.AddCommand(newShowCommand(), newSetCommand())
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the policy in force",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.WithContainer(cmd.Context(), configPath, func(c *app.Container) error {
				policy, err := c.GetPolicy.Execute(cmd.Context())
				if err != nil {
					return err
				}
				pending, err := c.Reconciler.PendingCount(cmd.Context())
				if err != nil {
					return err
				}
				return app.PrintJSON(cmd.OutOrStdout(), struct {
					Policy                 policyView `json:"policy"`
					PendingReconciliations int        `json:"pending_reconciliations"`
				}{toView(policy), pending})
			})
		},
	}
}

func newSetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change the policy",
		Long: `Change one or more policy settings. Flags left out keep their current value.
A change marks every subscription for reconciliation; turning notifications off
cancels all pending notification tasks at once.`,
		RunE: runSet,
	}

	cmd.Flags().BoolVar(&enabled, "enabled", true, "Schedule customer notifications")
	cmd.Flags().IntVar(&offsetAmount, "offset-amount", 0, "How far ahead of a date notifications fire")
	cmd.Flags().StringVar(&offsetUnit, "offset-unit", "", "Offset unit (day, week)")
	cmd.Flags().StringVar(&manualRenewalMode, "manual-renewal-mode", "", "Renewal notices for manual renewals (notify, skip)")
	cmd.Flags().BoolVar(&reconcileNow, "reconcile", false, "Reconcile all subscriptions before returning")

	return cmd
}

func runSet(cmd *cobra.Command, args []string) error {
	var command usecases.UpdatePolicyCommand
	flags := cmd.Flags()
	if flags.Changed("enabled") {
		command.Enabled = &enabled
	}
	if flags.Changed("offset-amount") {
		command.OffsetAmount = &offsetAmount
	}
	if flags.Changed("offset-unit") {
		command.OffsetUnit = &offsetUnit
	}
	if flags.Changed("manual-renewal-mode") {
		command.ManualRenewalMode = &manualRenewalMode
	}

	return app.WithContainer(cmd.Context(), configPath, func(c *app.Container) error {
		ctx := cmd.Context()

		result, err := c.UpdatePolicy.Execute(ctx, command)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if err := app.PrintJSON(out, struct {
			Policy         policyView `json:"policy"`
			Changed        bool       `json:"changed"`
			CancelledTasks int        `json:"cancelled_tasks"`
		}{toView(result.Policy), result.Changed, result.CancelledTasks}); err != nil {
			return err
		}

		if result.Changed && reconcileNow {
			return reconcile(cmd, c, out)
		}
		return nil
	})
}

func reconcile(cmd *cobra.Command, c *app.Container, out io.Writer) error {
	start := time.Now()
	processed, err := c.Reconciler.Execute(cmd.Context())
	if err != nil {
		return fmt.Errorf("reconciliation stopped after %d subscriptions: %w", processed, err)
	}
	fmt.Fprintf(out, "reconciled %d subscriptions in %s\n", processed, time.Since(start).Round(time.Millisecond))
	return nil
}
