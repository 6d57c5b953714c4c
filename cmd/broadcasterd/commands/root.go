// Package commands implements the broadcasterd CLI: start the §4.D
// fan-out loopback listener and revised-sessions producer, initialize a
// config file, run migrations, report version.
package commands

import (
	"github.com/geoplaque/satellite/internal/cliutil"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var root = cliutil.NewRoot("broadcasterd", "Revised-sessions broadcaster daemon",
	`broadcasterd polls the journal for sessions touched by a plaque or
device-displacement revision and fans them out to whichever Satellite
process has dialed in as the consumer, over a loopback listener.

Use "broadcasterd [command] --help" for more information about a command.`)

// Execute runs the root command. Called by main.main().
func Execute() error {
	return root.Execute()
}

func init() {
	root.Cmd.AddCommand(cliutil.NewVersionCommand("broadcasterd", &Version, &Commit, &Date))
	root.Cmd.AddCommand(cliutil.NewInitCommand(root.ConfigFile, "Start the daemon with: broadcasterd start"))
	root.Cmd.AddCommand(cliutil.NewMigrateCommand(root.ConfigFile))
	root.Cmd.AddCommand(startCmd)
	root.Cmd.AddCommand(cliutil.NewStatusCommand(root.ConfigFile))
}
