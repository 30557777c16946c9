package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <notification-url>",
	Short: "Register the webhook subscription",
	Long: `Registers a webhook subscription on the configured list, delivering
notifications to the given URL. The subscription ID and generated client
state are stored in configuration; inbound notifications carrying a
different client state are rejected.

The URL must be reachable from the repository and answer the validation
handshake, so run 'ocrhook serve' at that address first.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubscribe,
}

func init() {
	rootCmd.AddCommand(subscribeCmd)
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}

	sub, err := subscriptions.Subscribe(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	cmd.Printf("Subscription %s created, expires %s\n",
		sub.ID, sub.ExpirationDateTime.Format(time.RFC3339))
	return nil
}
