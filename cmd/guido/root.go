package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type rootOptions struct {
	configFile string
	envFiles   []string
	viper      *viper.Viper
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{viper: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "guido",
		Short:         "Guido voice assistant for the workshop robot",
		Long:          "guido listens for \"Guido wake up\", then delivers tools, recites maintenance procedures, tells the time and organizes the bench until it is told to sleep or goes idle.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (YAML or TOML); defaults to ./guido.yaml when present")
	flags.StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files to load before reading the environment")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	_ = opts.viper.BindPFlag("log.level", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		newRunCmd(opts),
		newClassifyCmd(),
		newProceduresCmd(),
	)
	return rootCmd
}
