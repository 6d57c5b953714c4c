// Package commands implements the messengerd CLI: start the §4.E APNs
// notification pipeline, initialize a config file, run migrations,
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

var root = cliutil.NewRoot("messengerd", "APNs notification pipeline daemon",
	`messengerd drains the journal's outstanding notifications, renders
their payloads through the buffer pool, and delivers them to Apple's
Push Notification service over a persistent TLS session.

Use "messengerd [command] --help" for more information about a command.`)

// Execute runs the root command. Called by main.main().
func Execute() error {
	return root.Execute()
}

func init() {
	root.Cmd.AddCommand(cliutil.NewVersionCommand("messengerd", &Version, &Commit, &Date))
	root.Cmd.AddCommand(cliutil.NewInitCommand(root.ConfigFile, "Start the daemon with: messengerd start"))
	root.Cmd.AddCommand(cliutil.NewMigrateCommand(root.ConfigFile))
	root.Cmd.AddCommand(startCmd)
	root.Cmd.AddCommand(cliutil.NewStatusCommand(root.ConfigFile))
}
