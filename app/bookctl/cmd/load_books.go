package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yoockh/bookbot/config"
	"github.com/yoockh/bookbot/internal/catalog"
	"github.com/yoockh/bookbot/internal/services"
)

var (
	loadFile        string
	loadBatchSize   int
	loadConcurrency int
)

var loadBooksCmd = &cobra.Command{
	Use:   "load-books",
	Short: "Embed the book summaries and upsert them into the index",
	Long: `Reads the book JSON array, embeds each book's document text in
concurrent batches and upserts the vectors keyed by book id. Re-running it
replaces existing entries.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := loadFile
		if path == "" {
			path = settings.SummariesPath
		}
		cat, err := catalog.Load(path)
		if err != nil {
			return err
		}
		if settings.VectorIndex == config.IndexMemory {
			log.Warn("memory index is per-process; books loaded here are not visible to the server")
		}

		emb, idx, cleanup, err := openIndex(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer cleanup()

		n, err := services.NewIngestService(emb, idx, loadBatchSize, loadConcurrency, log).Load(cmd.Context(), cat.Books())
		if err != nil {
			return fmt.Errorf("loaded %d of %d books: %w", n, cat.Len(), err)
		}
		total, err := idx.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "loaded %d books (%d in index)\n", n, total)
		return nil
	},
}

func init() {
	loadBooksCmd.Flags().StringVarP(&loadFile, "file", "f", "", "Book summaries JSON (defaults to SUMMARIES_PATH)")
	loadBooksCmd.Flags().IntVar(&loadBatchSize, "batch-size", 64, "Books per embedding request")
	loadBooksCmd.Flags().IntVar(&loadConcurrency, "concurrency", 4, "Embedding requests in flight")
	rootCmd.AddCommand(loadBooksCmd)
}
