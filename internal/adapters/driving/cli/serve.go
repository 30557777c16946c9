package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ocrhook/internal/adapters/driving/webhook"
	"github.com/custodia-labs/ocrhook/internal/logger"
)

// ConfigKeyListenAddr names the dispatcher listen address in configuration.
const ConfigKeyListenAddr = "webhook.listen_addr"

// defaultListenAddr is used when webhook.listen_addr is not configured.
const defaultListenAddr = ":8080"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook dispatcher",
	Long: `Starts the HTTP dispatcher that receives change notifications,
answers subscription validation handshakes, and runs newly added files
through OCR. Runs until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go watchConfig(ctx)

	addr := configStore.GetString(ConfigKeyListenAddr)
	if addr == "" {
		addr = defaultListenAddr
	}

	handler := webhook.NewHandler(processor, configStore)
	server := webhook.NewServer(addr, handler)

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("Dispatcher stopped")
	return nil
}

// watchConfig reloads configuration when the config file changes, so
// key rotations and list changes take effect without a restart. The
// directory is watched rather than the file because editors and
// provisioning tools replace the file by rename.
func watchConfig(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("Config watching disabled: %v", err)
		return
	}
	defer watcher.Close() //nolint:errcheck // shutdown path

	configPath := configStore.Path()
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		logger.Warn("Config watching disabled: %v", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != configPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := configStore.Load(); err != nil {
				logger.Error("Config reload failed: %v", err)
				continue
			}
			logger.Info("Configuration reloaded from %s", configPath)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Config watcher error: %v", err)
		}
	}
}
