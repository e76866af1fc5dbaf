// Command chat-server runs the multi-room chat relay: the admission
// service on its stream port and the fan-out relay on its datagram port,
// sharing one in-memory room registry.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-i2p/logger"
	"github.com/spf13/cobra"

	"github.com/nullroom/chatrelay/server"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "chat-server",
		Short: "Run the multi-room chat relay server",
		RunE:  run,
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (defaults to built-in defaults)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.GetGoI2PLogger().WithField("log_level", cfg.LogLevel)

	app, err := server.New(cfg, log)
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return app.Run(ctx)
}
