// Package subscription exposes the subscription use cases on the command line.
package subscription

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/orris-inc/subsync/internal/application/subscription/usecases"
	"github.com/orris-inc/subsync/internal/interfaces/cli/app"
	"github.com/orris-inc/subsync/internal/shared/biztime"
	"github.com/orris-inc/subsync/internal/shared/errors"
)

var configPath string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscription",
		Aliases: []string{"sub"},
		Short:   "Inspect and change subscriptions",
		Long:    `Create subscriptions, move them through their lifecycle and edit their dates. Dates use the "2006-01-02 15:04:05" UTC format.`,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")

	cmd.AddCommand(
		newCreateCommand(),
		newGetCommand(),
		newStatusCommand(),
		newSwitchCommand(),
		newDatesCommand(),
		newDeleteDateCommand(),
		newCalculateCommand(),
		newRecordOrderCommand(),
		newSyncCommand(),
	)

	return cmd
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.NewValidationError("invalid subscription id", arg)
	}
	return uint(id), nil
}

// parseDate accepts an empty string or "0" as the zero time.
func parseDate(name, value string) (time.Time, error) {
	if value == "" || value == "0" {
		return time.Time{}, nil
	}
	t, err := biztime.ParseMySQL(value)
	if err != nil {
		return time.Time{}, errors.NewValidationError(fmt.Sprintf("invalid %s date", name), err.Error())
	}
	return t, nil
}

// run wires a container for commands taking a subscription id argument.
func run(fn func(cmd *cobra.Command, c *app.Container, id uint) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return app.WithContainer(cmd.Context(), configPath, func(c *app.Container) error {
			return fn(cmd, c, id)
		})
	}
}

func newCreateCommand() *cobra.Command {
	var (
		cmdArgs                             usecases.CreateSubscriptionCommand
		start, trialEnd, nextPayment, endAt string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a subscription",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cmdArgs.Start, err = parseDate("start", start); err != nil {
				return err
			}
			if cmdArgs.TrialEnd, err = parseDate("trial_end", trialEnd); err != nil {
				return err
			}
			if cmdArgs.NextPayment, err = parseDate("next_payment", nextPayment); err != nil {
				return err
			}
			if cmdArgs.End, err = parseDate("end", endAt); err != nil {
				return err
			}

			return app.WithContainer(cmd.Context(), configPath, func(c *app.Container) error {
				sub, err := c.CreateSubscription.Execute(cmd.Context(), cmdArgs)
				if err != nil {
					return err
				}
				return app.PrintJSON(cmd.OutOrStdout(), sub)
			})
		},
	}

	f := cmd.Flags()
	f.UintVar(&cmdArgs.CustomerID, "customer", 0, "Customer id")
	f.StringVar(&cmdArgs.BillingPeriod, "period", "month", "Billing period (day, week, month, year)")
	f.IntVar(&cmdArgs.BillingInterval, "interval", 1, "Billing interval")
	f.StringVar(&cmdArgs.TrialPeriod, "trial-period", "", "Trial period (day, week, month, year)")
	f.IntVar(&cmdArgs.TrialLength, "trial-length", 0, "Trial length in trial periods")
	f.StringVar(&start, "start", "", "Start date, now when omitted")
	f.StringVar(&trialEnd, "trial-end", "", "Trial end date, derived from the trial when omitted")
	f.StringVar(&nextPayment, "next-payment", "", "Next payment date, derived from the cycle when omitted")
	f.StringVar(&endAt, "end", "", "End date, none when omitted")
	f.BoolVar(&cmdArgs.RequiresManualRenewal, "manual-renewal", false, "The customer renews manually")
	f.StringVar(&cmdArgs.PaymentMethod, "payment-method", "", "Payment gateway")
	f.BoolVar(&cmdArgs.Paid, "paid", false, "The parent order is paid, activating the subscription")
	_ = cmd.MarkFlagRequired("customer")

	return cmd
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, c *app.Container, id uint) error {
			sub, err := c.GetSubscription.Execute(cmd.Context(), usecases.GetSubscriptionQuery{SubscriptionID: id})
			if err != nil {
				return err
			}
			return app.PrintJSON(cmd.OutOrStdout(), sub)
		}),
	}
}

func newStatusCommand() *cobra.Command {
	var immediately bool

	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a subscription to another status",
		Long: `Move a subscription to another status. Cancelling a live subscription makes it
pending-cancel until the end of the prepaid term unless --immediately is set.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := args[1]
			return run(func(cmd *cobra.Command, c *app.Container, id uint) error {
				result, err := c.UpdateStatus.Execute(cmd.Context(), usecases.UpdateStatusCommand{
					SubscriptionID:    id,
					Status:            status,
					CancelImmediately: immediately,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%s -> %s\n", result.From, result.To)
				return app.PrintJSON(cmd.OutOrStdout(), result.Subscription)
			})(cmd, args)
		},
	}

	cmd.Flags().BoolVar(&immediately, "immediately", false, "Cancel now instead of at the end of the prepaid term")
	return cmd
}

func newSwitchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <id>",
		Short: "Mark a subscription as switched to another one",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, c *app.Container, id uint) error {
			sub, err := c.Switch.Execute(cmd.Context(), usecases.SwitchSubscriptionCommand{SubscriptionID: id})
			if err != nil {
				return err
			}
			return app.PrintJSON(cmd.OutOrStdout(), sub)
		}),
	}
}

func newDatesCommand() *cobra.Command {
	var dates map[string]string

	cmd := &cobra.Command{
		Use:   "dates <id>",
		Short: "Update subscription dates",
		Long: `Update one or more date slots at once, for example
  subsync subscription dates 12 --set next_payment="2025-02-01 00:00:00" --set end="2026-01-01 00:00:00"
All changes are checked together against the date ordering rules.`,
		Args: cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, c *app.Container, id uint) error {
			sub, err := c.UpdateDates.Execute(cmd.Context(), usecases.UpdateDatesCommand{
				SubscriptionID: id,
				Dates:          dates,
			})
			if err != nil {
				return err
			}
			return app.PrintJSON(cmd.OutOrStdout(), sub)
		}),
	}

	cmd.Flags().StringToStringVar(&dates, "set", nil, "Date slot and value, repeatable (slot=value)")
	_ = cmd.MarkFlagRequired("set")
	return cmd
}

func newDeleteDateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-date <id> <date-type>",
		Short: "Clear a date slot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dateType := args[1]
			return run(func(cmd *cobra.Command, c *app.Container, id uint) error {
				sub, err := c.DeleteDate.Execute(cmd.Context(), usecases.DeleteDateCommand{
					SubscriptionID: id,
					DateType:       dateType,
				})
				if err != nil {
					return err
				}
				return app.PrintJSON(cmd.OutOrStdout(), sub)
			})(cmd, args)
		},
	}
}

func newCalculateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "calculate <id> <date-type>",
		Short: "Calculate the expected value of a date slot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dateType := args[1]
			return run(func(cmd *cobra.Command, c *app.Container, id uint) error {
				value, err := c.CalculateDate.Execute(cmd.Context(), usecases.CalculateDateQuery{
					SubscriptionID: id,
					DateType:       dateType,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			})(cmd, args)
		},
	}
}

func newRecordOrderCommand() *cobra.Command {
	var (
		orderType, outcome, createdAt string
	)

	cmd := &cobra.Command{
		Use:   "record-order <id>",
		Short: "Record an order against a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseDate("order", createdAt)
			if err != nil {
				return err
			}
			return run(func(cmd *cobra.Command, c *app.Container, id uint) error {
				sub, err := c.RecordOrder.Execute(cmd.Context(), usecases.RecordOrderCommand{
					SubscriptionID: id,
					OrderType:      orderType,
					Outcome:        outcome,
					CreatedAt:      at,
				})
				if err != nil {
					return err
				}
				return app.PrintJSON(cmd.OutOrStdout(), sub)
			})(cmd, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&orderType, "type", "renewal", "Order type (parent, renewal, switch, resubscribe)")
	f.StringVar(&outcome, "outcome", "completed", "Payment outcome (completed, refunded, failed)")
	f.StringVar(&createdAt, "at", "", "Order creation date, now when omitted")
	return cmd
}

func newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <id>",
		Short: "Resynchronize the notification tasks of a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, c *app.Container, id uint) error {
			ctx := cmd.Context()

			sub, err := c.Subscriptions.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if sub == nil {
				return errors.NewNotFoundError("subscription not found", strconv.FormatUint(uint64(id), 10))
			}

			policy, err := c.Policies.GetPolicy(ctx)
			if err != nil {
				return err
			}
			result, err := c.Synchronizer.Sync(ctx, sub)
			if err != nil {
				return err
			}
			if err := c.Subscriptions.MarkNotificationsSynced(ctx, []uint{id}, policy.SyncMarker()); err != nil {
				return err
			}

			return app.PrintJSON(cmd.OutOrStdout(), map[string]any{
				"added":   result.Added,
				"updated": result.Updated,
				"deleted": result.Deleted,
				"failed":  result.Failed,
				"skipped": result.Skipped,
			})
		}),
	}
}
