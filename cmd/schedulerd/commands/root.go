// Package commands implements the schedulerd CLI: start the two
// revision-scheduling jobs, initialize a config file, run migrations,
// report version.
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

var root = cliutil.NewRoot("schedulerd", "Revision scheduler daemon",
	`schedulerd runs the two independently timed jobs that mark sessions
revised: one polling for modified plaques, one for device displacement,
each backing off to an idle interval when a poll finds nothing and
tightening to a busy interval when it does.

Use "schedulerd [command] --help" for more information about a command.`)

// Execute runs the root command. Called by main.main().
func Execute() error {
	return root.Execute()
}

func init() {
	root.Cmd.AddCommand(cliutil.NewVersionCommand("schedulerd", &Version, &Commit, &Date))
	root.Cmd.AddCommand(cliutil.NewInitCommand(root.ConfigFile, "Start the daemon with: schedulerd start"))
	root.Cmd.AddCommand(cliutil.NewMigrateCommand(root.ConfigFile))
	root.Cmd.AddCommand(startCmd)
	root.Cmd.AddCommand(cliutil.NewStatusCommand(root.ConfigFile))
}
