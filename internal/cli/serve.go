package cli

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/pitwall/internal/app"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat API",
	Long: `Starts the HTTP API (POST /api/chat, GET /api/status, GET /healthcheck).
The corpus is seeded in the background unless BOOTSTRAP_ON_START=false.
With DISCORD_EMBEDDED=true and DISCORD_TOKEN set the Discord bot runs in the
same process.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg := app.LoadConfig()
	if servePort != "" {
		cfg.Port = servePort
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.Start()
	return a.Run(ctx)
}
