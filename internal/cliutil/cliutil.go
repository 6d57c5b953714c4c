// Package cliutil provides the cobra command scaffolding shared by
// satellited, broadcasterd, messengerd, and schedulerd: a root command
// with a persistent --config flag, and version/init/migrate
// subcommands. Grounded on marmos91-dittofs/cmd/dittofs/commands/root.go
// (persistent --config flag, SilenceUsage/SilenceErrors, Execute/
// GetRootCmd shape) and .../commands/util.go (InitLogger). Generalized
// from one teacher binary into a shared package because four daemons
// in this domain need the identical scaffolding, where the teacher only
// ever had one server binary (dittofs) plus separately-specialized CLI
// clients (dfsctl, dittofsctl) that don't share this shape.
package cliutil

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geoplaque/satellite/internal/dbmigrate"
	"github.com/geoplaque/satellite/internal/logger"
	"github.com/geoplaque/satellite/pkg/config"
)

// RootCommand wraps a cobra root command with the config-file flag
// every binary shares.
type RootCommand struct {
	Cmd     *cobra.Command
	cfgFile string
}

// NewRoot builds a root command named use, with persistent --config
// flag and SilenceUsage/SilenceErrors matching the teacher's root.go.
func NewRoot(use, short, long string) *RootCommand {
	r := &RootCommand{}
	r.Cmd = &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	r.Cmd.PersistentFlags().StringVar(&r.cfgFile, "config", "",
		"config file (default: $XDG_CONFIG_HOME/satellite/config.yaml)")
	return r
}

// ConfigFile returns the --config flag's current value.
func (r *RootCommand) ConfigFile() string {
	return r.cfgFile
}

// Execute runs the root command.
func (r *RootCommand) Execute() error {
	return r.Cmd.Execute()
}

// InitLogger initializes the structured logger from cfg.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// NewVersionCommand returns a "version" subcommand reporting the
// build-time version/commit/date variables main() injects via ldflags.
func NewVersionCommand(binName string, version, commit, date *string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("%s %s (commit: %s, built: %s)\n", binName, *version, *commit, *date)
			return nil
		},
	}
}

// NewInitCommand returns an "init" subcommand writing a default config
// file, mirroring dittofs' init command's force flag and next-steps
// message.
func NewInitCommand(getConfigFile func() string, startHint string) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile := getConfigFile()

			var path string
			var err error
			if configFile != "" {
				if err := config.SaveConfig(config.GetDefaultConfig(), configFile); err != nil {
					return fmt.Errorf("failed to initialize config: %w", err)
				}
				path = configFile
			} else {
				path, err = config.InitConfig(force)
				if err != nil {
					return fmt.Errorf("failed to initialize config: %w", err)
				}
			}

			fmt.Printf("Configuration file created at: %s\n", path)
			fmt.Println("\nNext steps:")
			fmt.Println("  1. Edit the configuration file to customize your setup")
			fmt.Printf("  2. %s\n", startHint)
			fmt.Println("\nSecurity note:")
			fmt.Println("  A random JWT secret has been generated for development use.")
			fmt.Println("  For production, generate a secure secret and set listener.jwt_secret,")
			fmt.Println("  or export it via SATELLITE_LISTENER_JWT_SECRET:")
			fmt.Println("    export SATELLITE_LISTENER_JWT_SECRET=$(openssl rand -hex 32)")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Force overwrite existing config file")
	return cmd
}

// NewMigrateCommand returns a "migrate" subcommand applying pending
// database migrations, grounded on
// marmos91-dittofs/cmd/dittofs/commands/migrate.go's load-config,
// init-logger, run-migration shape (generalized from that file's
// control-plane-store auto-migration to an explicit dbmigrate.Run
// call, since this domain's schema is shared across all four binaries
// rather than owned by one store package).
func NewMigrateCommand(getConfigFile func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.MustLoad(getConfigFile())
			if err != nil {
				return err
			}
			if err := InitLogger(cfg); err != nil {
				return err
			}
			if err := dbmigrate.Run(cmd.Context(), cfg.Database.DSN); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Println("Migrations completed successfully")
			return nil
		},
	}
}
