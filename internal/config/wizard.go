package config

import (
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
)

// detectContentRoot guesses the content root: the first of a few common
// directories that holds a manifest.
func detectContentRoot(manifest string) string {
	for _, dir := range []string{".", "content", "posts", "docs"} {
		if _, err := os.Stat(dir + "/" + manifest); err == nil {
			return dir
		}
	}
	return "."
}

// RunWizard runs an interactive configuration wizard and saves the result
// to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to markpage! Let's configure your blog.")
	fmt.Println()

	cfg := DefaultConfig()

	titlePrompt := promptui.Prompt{
		Label:   "Site title",
		Default: cfg.SiteTitle,
	}
	title, err := titlePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("site title: %w", err)
	}
	cfg.SiteTitle = title

	rootPrompt := promptui.Prompt{
		Label:   "Content root (directory or http(s) URL)",
		Default: detectContentRoot(cfg.Manifest),
		Validate: func(s string) error {
			if s == "" {
				return fmt.Errorf("content root is required")
			}
			return nil
		},
	}
	root, err := rootPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("content root: %w", err)
	}
	cfg.ContentRoot = root

	commentsPrompt := promptui.Select{
		Label: "Enable comments",
		Items: []string{"no", "yes"},
	}
	idx, _, err := commentsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("comments selection: %w", err)
	}
	if idx == 1 {
		prompts := []struct {
			label string
			dest  *string
			mask  rune
		}{
			{"Comment library URL", &cfg.Comments.LibraryURL, 0},
			{"Comment app ID", &cfg.Comments.AppID, 0},
			{"Comment app key", &cfg.Comments.AppKey, '*'},
			{"Comment region (blank for default)", &cfg.Comments.Region, 0},
		}
		for _, p := range prompts {
			prompt := promptui.Prompt{Label: p.label, Mask: p.mask}
			val, err := prompt.Run()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p.label, err)
			}
			*p.dest = val
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, err
	}
	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}
