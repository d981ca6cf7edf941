package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pitwall",
	Short: "Formula 1 question answering over a scraped corpus",
	Long: `pitwall scrapes a fixed list of Formula 1 pages, embeds them and answers
questions about them over HTTP and Discord.`,
	SilenceUsage: true,
}

// Execute runs the command line.
func Execute() error {
	return rootCmd.Execute()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
