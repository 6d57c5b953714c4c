package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/geoplaque/satellite/internal/cli/output"
	"github.com/geoplaque/satellite/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the resolved configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the configuration without starting a daemon",
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(configFile)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, cfg)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, cfg)
	default:
		return output.SimpleTable(os.Stdout, [][2]string{
			{"Listener Addr", cfg.Listener.Addr},
			{"Database DSN", cfg.Database.DSN},
			{"Broadcaster Addr", cfg.Broadcaster.Addr},
			{"Broadcaster BatchCap", fmt.Sprintf("%d", cfg.Broadcaster.BatchCap)},
			{"Messenger Host", cfg.Messenger.Host},
			{"Messenger BatchMode", cfg.Messenger.BatchMode},
			{"Metrics Enabled", fmt.Sprintf("%t", cfg.Metrics.Enabled)},
			{"Metrics Port", fmt.Sprintf("%d", cfg.Metrics.Port)},
		})
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if _, err := config.MustLoad(configFile); err != nil {
		return err
	}
	fmt.Println("configuration is valid")
	return nil
}
