package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/markpage/internal/site"
)

var renderKeywords []string

var renderCmd = &cobra.Command{
	Use:   "render [id]",
	Short: "Render one page to stdout",
	Long: `Renders a single page and prints its HTML. Without an id the index is
rendered; each -k flag toggles a keyword filter on the index.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		renderer, err := newRenderer(cfg, nil, logger)
		if err != nil {
			return err
		}

		req := site.Request{Toggles: renderKeywords}
		if len(args) == 1 {
			req.ID = args[0]
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		rendered, err := renderer.Render(ctx, req)
		if err != nil {
			return err
		}
		out, err := rendered.Page.HTML()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringArrayVarP(&renderKeywords, "keyword", "k", nil, "keyword to toggle on the index (repeatable)")
	rootCmd.AddCommand(renderCmd)
}
