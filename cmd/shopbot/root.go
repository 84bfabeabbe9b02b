package main

import (
	"github.com/spf13/cobra"
)

const (
	configEnvVar      = "CONFIG_PATH"
	defaultConfigPath = "config.yaml"
)

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "shopbot",
		Short:         "Telegram shop assistant backed by Strapi",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to the YAML config (default $"+configEnvVar+" or "+defaultConfigPath+")")

	run := newRunCmd(&configPath)
	root.AddCommand(run, newMigrateCmd(&configPath), newVersionCmd())
	root.RunE = run.RunE
	return root
}
