package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/findex/internal/output"
	"github.com/Aman-CERP/findex/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit     int
	extension string
	textOnly  bool
	json      bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Long: `Search indexed files by name, path and text content.

Words match whole tokens and fragments of three or more characters match
inside names and content. At most 50 files are returned.`,
		Example: `  findex search invoice
  findex search "quarterly report" --ext pdf
  findex search todo --text-only --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config, at most 50)")
	cmd.Flags().StringVarP(&opts.extension, "ext", "e", "", "Only files with this extension")
	cmd.Flags().BoolVar(&opts.textOnly, "text-only", false, "Only text files")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the result event as JSON")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()

	svc, err := search.NewService(search.ServiceConfig{
		Index:        idx,
		DefaultLimit: cfg.Search.Limit,
		CacheSize:    -1,
	})
	if err != nil {
		return err
	}

	searchOpts := search.Options{Limit: opts.limit, Extension: opts.extension, TextOnly: opts.textOnly}
	out := output.New(cmd.OutOrStdout())

	if opts.json {
		e := svc.Event(ctx, query, searchOpts)
		return out.Event(e)
	}

	hits, err := svc.Search(ctx, query, searchOpts)
	if err != nil {
		return err
	}
	slog.Info("search_complete", slog.String("query", query), slog.Int("results", len(hits)))
	out.Hits(search.Hits(hits))
	return nil
}
