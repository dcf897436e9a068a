package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ziadkadry99/markpage/internal/config"
	"github.com/ziadkadry99/markpage/internal/fetch"
	"github.com/ziadkadry99/markpage/internal/loader"
	"github.com/ziadkadry99/markpage/internal/render"
	"github.com/ziadkadry99/markpage/internal/site"
	"github.com/ziadkadry99/markpage/internal/widget"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `markpage init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newTransport returns the resource transport for cfg. Remote scripts are
// probed with the fetcher's HTTP client when asset probing is enabled.
func newTransport(cfg *config.Config, fetcher fetch.Fetcher, log *zap.Logger) loader.Transport {
	if !cfg.ProbeAssets {
		return loader.NewMux(nil)
	}
	remote := &loader.HTTPTransport{Log: log}
	if hf, ok := fetcher.(*fetch.HTTPFetcher); ok {
		remote.Client = hf.Client()
	}
	return loader.NewMux(remote)
}

// newRenderer wires the page renderer from cfg. counter may be nil.
func newRenderer(cfg *config.Config, counter widget.Counter, log *zap.Logger) (*site.Renderer, error) {
	fetcher, err := fetch.New(cfg.ContentRoot)
	if err != nil {
		return nil, fmt.Errorf("opening content root: %w", err)
	}

	pipeline := render.New(render.Options{
		HighlighterURL: cfg.HighlighterURL,
		ConverterURL:   cfg.ConverterURL,
		Styles:         cfg.Styles,
		Convert:        cfg.Convert,
		LoadingGrace:   cfg.LoadingGrace,
		Hooks:          []render.Hook{render.NavHook},
	}, log)

	widgets := widget.New(widget.Options{
		SiteTitle:    cfg.SiteTitle,
		AnalyticsURL: cfg.AnalyticsURL,
		Comments:     cfg.Comments,
		Counter:      counter,
	}, log)

	return site.NewRenderer(site.Options{
		SiteTitle:    cfg.SiteTitle,
		ManifestPath: cfg.Manifest,
		Fetcher:      fetcher,
		Transport:    newTransport(cfg, fetcher, log),
		Pipeline:     pipeline,
		Widgets:      widgets,
	}, log), nil
}
