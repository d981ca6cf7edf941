package cli

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/pitwall/internal/app"
	"github.com/yungbote/pitwall/internal/modules/discord"
	"github.com/yungbote/pitwall/internal/platform/logger"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Discord bot against a chat API",
	Long: `Connects to Discord with DISCORD_TOKEN and answers "!ask <question>" messages
by forwarding them to CHAT_API_URL.`,
	RunE: runBot,
}

func init() {
	rootCmd.AddCommand(botCmd)
}

func runBot(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg := app.LoadConfig()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	client := discord.NewAPIClient(log, cfg.ChatAPIURL, cfg.ChatAPITimeout)
	bot, err := discord.NewBot(log, discord.Config{Token: cfg.DiscordToken}, client)
	if err != nil {
		return err
	}
	return bot.Run(ctx)
}
