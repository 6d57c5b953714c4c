// Package commands implements the satellited CLI: start the Satellite
// task engine, initialize a config file, run migrations, report version.
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

var root = cliutil.NewRoot("satellited", "Satellite task engine daemon",
	`satellited accepts client TCP connections, registers new devices
(anticipant dialogue) or authenticates returning ones, and drives each as
a state-machine task per the dialogue protocol.

Use "satellited [command] --help" for more information about a command.`)

// Execute runs the root command. Called by main.main().
func Execute() error {
	return root.Execute()
}

func init() {
	root.Cmd.AddCommand(cliutil.NewVersionCommand("satellited", &Version, &Commit, &Date))
	root.Cmd.AddCommand(cliutil.NewInitCommand(root.ConfigFile, "Start the server with: satellited start"))
	root.Cmd.AddCommand(cliutil.NewMigrateCommand(root.ConfigFile))
	root.Cmd.AddCommand(startCmd)
	root.Cmd.AddCommand(cliutil.NewStatusCommand(root.ConfigFile))
}
