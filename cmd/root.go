package main

import (
	"github.com/pancudaniel7/offline-stream-watcher/internal/infra"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/applog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "stream-watcher",
		Short:         "Feed local stream records to local function handlers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := infra.InitConfig(configPath); err != nil {
				return err
			}
			logger = applog.NewAppDefaultLogger()
			if f := viper.ConfigFileUsed(); f != "" {
				logger.Debug("Config loaded", "file", f)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config file (default ./configs/config.yml)")
	root.PersistentFlags().String("service", "", "path to the service file (overrides service.file)")
	root.PersistentFlags().String("provider", "", "stream provider: kinesis or redis (overrides provider.type)")
	_ = viper.BindPFlag("service.file", root.PersistentFlags().Lookup("service"))
	_ = viper.BindPFlag("provider.type", root.PersistentFlags().Lookup("provider"))

	root.AddCommand(
		newWatchCommand(),
		newPutCommand(),
		newRegistryCommand(),
	)
	return root
}
