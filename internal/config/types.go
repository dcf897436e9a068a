package config

import (
	"time"

	"github.com/ziadkadry99/markpage/internal/render"
	"github.com/ziadkadry99/markpage/internal/widget"
)

// Config is the top-level markpage configuration, corresponding to .markpage.yml.
type Config struct {
	SiteTitle    string `yaml:"site_title" koanf:"site_title"`
	ContentRoot  string `yaml:"content_root" koanf:"content_root"`
	Manifest     string `yaml:"manifest" koanf:"manifest"`
	Port         int    `yaml:"port" koanf:"port"`
	DBPath       string `yaml:"db_path" koanf:"db_path"`
	CORSAllowAll bool   `yaml:"cors_allow_all" koanf:"cors_allow_all"`

	HighlighterURL string        `yaml:"highlighter_url" koanf:"highlighter_url"`
	ConverterURL   string        `yaml:"converter_url" koanf:"converter_url"`
	HighlightStyle string        `yaml:"highlight_style" koanf:"highlight_style"`
	Styles         []string      `yaml:"styles" koanf:"styles"`
	LoadingGrace   time.Duration `yaml:"loading_grace" koanf:"loading_grace"`
	// ProbeAssets makes remote scripts wait for a successful retrieval.
	// When false every script is treated as ready once injected.
	ProbeAssets bool `yaml:"probe_assets" koanf:"probe_assets"`

	Convert      render.ConvertOptions `yaml:"convert" koanf:"convert"`
	Comments     widget.CommentConfig  `yaml:"comments" koanf:"comments"`
	AnalyticsURL string                `yaml:"analytics_url" koanf:"analytics_url"`

	Export ExportConfig `yaml:"export" koanf:"export"`
}

// ExportConfig holds settings for the static export.
type ExportConfig struct {
	OutputDir string   `yaml:"output_dir" koanf:"output_dir"`
	Include   []string `yaml:"include" koanf:"include"`
	Exclude   []string `yaml:"exclude" koanf:"exclude"`
}
