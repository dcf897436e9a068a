package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/markpage/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize markpage configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure markpage for your blog and writes the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
