package main

import (
	"github.com/spf13/cobra"
)

var (
	flagConfigPath string
	flagUserMode   bool
	flagDevMode    bool
	flagVerbose    bool
)

// Execute builds and runs the samd root command.
func Execute() error {
	root := &cobra.Command{
		Use:   "samd",
		Short: "System Application Manager daemon",
		Long:  "samd supervises the lifecycle of installed web, qml, and native applications over the RPC bus.",
	}

	root.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to the configuration file (default: mode-dependent)")
	root.PersistentFlags().BoolVarP(&flagUserMode, "user-mode", "u", false, "run against the user/session bus instead of the system bus")
	root.PersistentFlags().BoolVar(&flagDevMode, "dev-mode", false, "expose the /dev RPC category")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newServeCommand())
	root.AddCommand(newListAppsCommand())
	root.AddCommand(newRunningCommand())

	return root.Execute()
}
