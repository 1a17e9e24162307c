package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soyeahso/lobeboard/internal/config"
	"github.com/soyeahso/lobeboard/internal/memsearch"
)

func newSearchCmd() *cobra.Command {
	var (
		limit    int
		category string
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the memory backend",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			cfg, err := config.Load(paths.Config)
			if err != nil {
				cfg = config.Defaults()
			}

			ctx, cancel := cmdContext()
			defer cancel()

			client := newMemoryClient(cfg)
			result := client.Search(ctx, query, memsearch.SearchOptions{Limit: limit, Category: category})
			if len(result.Records) == 0 {
				fmt.Println("no results")
				return nil
			}

			for _, rec := range result.Records {
				title := rec.Title
				if title == "" {
					title = rec.ID
				}
				fmt.Printf("- %s", title)
				if rec.Category != "" {
					fmt.Printf(" [%s]", rec.Category)
				}
				if rec.Score != nil {
					fmt.Printf(" (%.2f)", *rec.Score)
				}
				fmt.Println()
				if rec.Content != "" {
					fmt.Printf("  %s\n", truncate(rec.Content, 120))
				}
			}
			fmt.Printf("\n%d result(s)\n", result.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results")
	cmd.Flags().StringVar(&category, "category", "", "restrict to a category")
	return cmd
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
