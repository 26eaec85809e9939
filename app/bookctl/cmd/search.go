package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yoockh/bookbot/internal/tools"
)

var searchK int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run search_books against the index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		emb, idx, cleanup, err := openIndex(cmd.Context(), settings.SummariesPath)
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := tools.NewDispatcher(emb, idx, nil).SearchBooks(cmd.Context(), strings.Join(args, " "), searchK)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "k", "k", tools.DefaultK, "Number of results (1-10)")
	rootCmd.AddCommand(searchCmd)
}
