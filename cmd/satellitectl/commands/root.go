// Package commands implements satellitectl, the admin client for
// inspecting a running satellite deployment: its resolved
// configuration and the sessions the task engine has granted.
package commands

import (
	"github.com/spf13/cobra"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	configFile   string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "satellitectl",
	Short: "Satellite admin CLI",
	Long: `satellitectl inspects a satellite deployment's configuration and
database state: the resolved config and the sessions the Satellite
task engine has granted.

Use "satellitectl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default: $XDG_CONFIG_HOME/satellite/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table",
		"output format (table|json|yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(sessionsCmd)
}
