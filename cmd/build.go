package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/markpage/internal/progress"
	"github.com/ziadkadry99/markpage/internal/site"
)

var (
	buildOut     string
	buildInclude []string
	buildExclude []string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Export the blog as static HTML",
	Long: `Renders the index, one filtered index per keyword, and every content page
listed in the manifest into the output directory. Links between pages are
rewritten to point at the exported files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if buildOut != "" {
			cfg.Export.OutputDir = buildOut
		}
		if len(buildInclude) > 0 {
			cfg.Export.Include = buildInclude
		}
		if len(buildExclude) > 0 {
			cfg.Export.Exclude = buildExclude
		}

		renderer, err := newRenderer(cfg, nil, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		exporter := &site.Exporter{
			Renderer:       renderer,
			OutputDir:      cfg.Export.OutputDir,
			Include:        cfg.Export.Include,
			Exclude:        cfg.Export.Exclude,
			HighlightStyle: cfg.HighlightStyle,
			Reporter:       progress.NewReporter(),
			Log:            logger,
		}
		n, err := exporter.Export(ctx)
		if err != nil {
			return fmt.Errorf("export failed after %d pages: %w", n, err)
		}
		fmt.Printf("Exported %d pages to %s\n", n, cfg.Export.OutputDir)
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "", "output directory (overrides export.output_dir)")
	buildCmd.Flags().StringSliceVar(&buildInclude, "include", nil, "glob of page identifiers to export (repeatable)")
	buildCmd.Flags().StringSliceVar(&buildExclude, "exclude", nil, "glob of page identifiers to skip (repeatable)")
	rootCmd.AddCommand(buildCmd)
}
