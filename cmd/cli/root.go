package main

import (
	"github.com/spf13/cobra"

	"github.com/soundtrace/hotlist/internal/config"
	"github.com/soundtrace/hotlist/pkg/hotlist"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var dbFlag string

	rootCmd := &cobra.Command{
		Use:           "hotlist",
		Short:         "Hotlist fingerprint matching CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "hotlist.toml", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "Path to the reference index database (overrides config)")

	newService := func() (hotlist.Service, error) {
		cfg, err := config.Load(configFlag)
		if err != nil {
			return nil, err
		}
		if dbFlag != "" {
			cfg.Index.DBPath = dbFlag
		}
		return hotlist.NewService(
			hotlist.WithDBPath(cfg.Index.DBPath),
			hotlist.WithTimeQuantum(cfg.Matching.TimeQuantum),
		)
	}

	rootCmd.AddCommand(newAddCommand(newService))
	rootCmd.AddCommand(newListCommand(newService))
	rootCmd.AddCommand(newDeleteCommand(newService))
	rootCmd.AddCommand(newMatchCommand(newService))

	return rootCmd
}
