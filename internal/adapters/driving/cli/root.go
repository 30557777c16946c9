// Package cli provides the ocrhook command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/ocrhook/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ocrhook/internal/adapters/driven/sharepoint"
	"github.com/custodia-labs/ocrhook/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ocrhook/internal/adapters/driven/vision"
	"github.com/custodia-labs/ocrhook/internal/core/ports/driven"
	"github.com/custodia-labs/ocrhook/internal/core/ports/driving"
	"github.com/custodia-labs/ocrhook/internal/core/services"
	"github.com/custodia-labs/ocrhook/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// ConfigKeyListName names the watched list in configuration.
const ConfigKeyListName = "sharepoint.list_name"

var (
	flagVerbose   bool
	flagConfigDir string
	flagDataDir   string
)

// Shared service handles, wired by initServices.
var (
	configStore   driven.ConfigStore
	cursorStore   *sqlite.CursorStore
	processor     driving.NotificationProcessor
	subscriptions driving.SubscriptionManager
)

var rootCmd = &cobra.Command{
	Use:   "ocrhook",
	Short: "OCR webhook bridge for document lists",
	Long: `ocrhook listens for change notifications from a document list,
runs newly uploaded files through a remote OCR service, and writes the
recognized text and detected language back onto the originating item.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(flagVerbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default ~/.ocrhook)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default ~/.ocrhook/data)")
}

// Execute runs the root command.
func Execute() error {
	defer closeServices()
	return rootCmd.Execute()
}

// initServices wires adapters and services. Called by commands that
// talk to the repository; version does not need it.
func initServices() error {
	store, err := file.NewConfigStore(flagConfigDir)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	configStore = store

	listName := configStore.GetString(ConfigKeyListName)
	if listName == "" {
		return errors.New("sharepoint.list_name is not configured")
	}

	if err := ensurePassword(configStore); err != nil {
		return err
	}

	cursors, err := sqlite.NewCursorStore(flagDataDir)
	if err != nil {
		return fmt.Errorf("open cursor store: %w", err)
	}
	cursorStore = cursors

	contentStore := sharepoint.NewStore(configStore)
	recognizer := vision.NewClient(configStore)

	processor = services.NewCorrelator(contentStore, recognizer, cursors, listName)
	subscriptions = services.NewSubscriptionService(contentStore, configStore, listName)
	return nil
}

func closeServices() {
	if cursorStore != nil {
		cursorStore.Close() //nolint:errcheck // shutdown path
	}
}

// ensurePassword prompts for the repository password when the STS auth
// mode is selected and no password is configured. The prompted value is
// kept in memory only, never written to the config file.
func ensurePassword(config driven.ConfigStore) error {
	mode := config.GetString(sharepoint.ConfigKeyAuthMode)
	if mode != "" && mode != sharepoint.AuthModeSTS {
		return nil
	}
	if config.GetString(sharepoint.ConfigKeyPassword) != "" {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("sharepoint.password is not configured and stdin is not a terminal")
	}

	fmt.Fprintf(os.Stderr, "Password for %s: ", config.GetString(sharepoint.ConfigKeyUsername))
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	return setTransient(config, sharepoint.ConfigKeyPassword, string(password))
}

// setTransient puts a value into the in-memory view of the config
// store without persisting credentials to disk.
func setTransient(config driven.ConfigStore, key, value string) error {
	type memSetter interface {
		SetMemory(key string, value any)
	}
	if m, ok := config.(memSetter); ok {
		m.SetMemory(key, value)
		return nil
	}
	return config.Set(key, value)
}
