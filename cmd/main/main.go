package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "pricescout",
	Short: "Compare computer part prices across retailers",
	Long: `pricescout asks every configured retailer for a manufacturer part number,
reports the cheapest offer and keeps a change-aware price history.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(fetchCmd, batchCmd, historyCmd, latestCmd, statsCmd, trendsCmd, mpnsCmd, pruneCmd, serveCmd)
}

// -----------------------------------------------------------------------------

func main() {
	if err := run(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return fmt.Errorf("pricescout: %w", err)
	}
	return nil
}
