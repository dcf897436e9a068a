package config

import (
	"time"

	"github.com/ziadkadry99/markpage/internal/db"
	"github.com/ziadkadry99/markpage/internal/highlight"
	"github.com/ziadkadry99/markpage/internal/loader"
	"github.com/ziadkadry99/markpage/internal/render"
	"github.com/ziadkadry99/markpage/internal/widget"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SiteTitle:      "Blog",
		ContentRoot:    ".",
		Manifest:       "list.json",
		Port:           8080,
		DBPath:         db.MemoryPath,
		HighlighterURL: loader.BuiltinScheme + "highlight",
		ConverterURL:   loader.BuiltinScheme + "markdown",
		HighlightStyle: "github",
		Styles:         []string{"/style.css", "/marked.css", highlight.StylesheetPath},
		LoadingGrace:   300 * time.Millisecond,
		Convert: render.ConvertOptions{
			Breaks:      true,
			Smartypants: true,
		},
		Comments: widget.CommentConfig{
			Element:     widget.DefaultElement,
			Placeholder: "Leave a comment.",
		},
		Export: ExportConfig{
			OutputDir: "public",
			Include:   []string{"**"},
		},
	}
}
