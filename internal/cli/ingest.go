package cli

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/pitwall/internal/app"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Seed the corpus and exit",
	Long: `Scrapes the allowlist, chunks and embeds the text and stores it, unless
chunks are already stored or another process holds the bootstrap lock.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := app.New(ctx, app.LoadConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Ingest(ctx)
	if err != nil {
		return err
	}
	switch {
	case res.HeldElsewhere:
		cmd.Println("Bootstrap is running in another process.")
	case res.Skipped:
		cmd.Println("Corpus already present; nothing to do.")
	default:
		cmd.Printf("Stored %d of %d chunks from %d pages (run %s).\n",
			res.Stats.ChunksStored, res.Stats.Chunks, res.Stats.PagesFetched, res.RunID)
	}
	return nil
}
