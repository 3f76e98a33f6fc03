package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/orris-inc/subsync/internal/interfaces/cli/migrate"
	"github.com/orris-inc/subsync/internal/interfaces/cli/policy"
	"github.com/orris-inc/subsync/internal/interfaces/cli/subscription"
	"github.com/orris-inc/subsync/internal/interfaces/cli/worker"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "subsync",
		Short:   "Subscription lifecycle and notification scheduling",
		Long:    `subsync keeps subscription dates, statuses and the customer notifications derived from them consistent.`,
		Version: version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		worker.NewCommand(),
		worker.NewReconcileCommand(),
		migrate.NewCommand(),
		policy.NewCommand(),
		subscription.NewCommand(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
