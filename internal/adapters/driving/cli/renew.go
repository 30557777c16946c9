package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var renewCmd = &cobra.Command{
	Use:   "renew",
	Short: "Extend the webhook subscription",
	Long: `Pushes the stored subscription's expiry further into the future.
Run this periodically (for example from cron) to keep notifications
flowing; expired subscriptions are deleted by the repository.`,
	RunE: runRenew,
}

func init() {
	rootCmd.AddCommand(renewCmd)
}

func runRenew(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}

	sub, err := subscriptions.Renew(cmd.Context())
	if err != nil {
		return fmt.Errorf("renew: %w", err)
	}

	cmd.Printf("Subscription %s renewed until %s\n",
		sub.ID, sub.ExpirationDateTime.Format(time.RFC3339))
	return nil
}
