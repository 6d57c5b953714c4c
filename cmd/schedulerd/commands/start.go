package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geoplaque/satellite/internal/cliutil"
	"github.com/geoplaque/satellite/internal/logger"
	"github.com/geoplaque/satellite/internal/metrics"
	"github.com/geoplaque/satellite/internal/scheduler"
	"github.com/geoplaque/satellite/pkg/config"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the revision scheduler",
	Long: `Start schedulerd, running the modified-plaques and
device-displacement revision jobs on their configured intervals.

Examples:
  schedulerd start
  schedulerd start --config /etc/satellite/config.yaml`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(root.ConfigFile())
	if err != nil {
		return err
	}
	if err := cliutil.InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chain, err := cliutil.OpenChain(ctx, "scheduler", cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database chain: %w", err)
	}
	defer chain.Close(ctx)

	s := scheduler.New(chain, scheduler.Config{
		ModifiedPlaquesIdleInterval:    cfg.Scheduler.ModifiedPlaquesIdleInterval,
		ModifiedPlaquesBusyInterval:    cfg.Scheduler.ModifiedPlaquesBusyInterval,
		DeviceDisplacementIdleInterval: cfg.Scheduler.DeviceDisplacementIdleInterval,
		DeviceDisplacementBusyInterval: cfg.Scheduler.DeviceDisplacementBusyInterval,
	})

	if configFile := root.ConfigFile(); configFile != "" {
		go func() {
			if err := config.Watch(ctx, configFile, func(reloaded *config.Config) {
				s.SetModifiedPlaquesIntervals(
					reloaded.Scheduler.ModifiedPlaquesIdleInterval,
					reloaded.Scheduler.ModifiedPlaquesBusyInterval,
				)
				s.SetDeviceDisplacementIntervals(
					reloaded.Scheduler.DeviceDisplacementIdleInterval,
					reloaded.Scheduler.DeviceDisplacementBusyInterval,
				)
				logger.InfoCtx(ctx, "applied reloaded scheduler intervals")
			}); err != nil {
				logger.WarnCtx(ctx, "config watch stopped", "error", err)
			}
		}()
	}

	if cfg.Metrics.Enabled {
		reg := metrics.New("schedulerd")
		addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		go func() {
			if err := reg.Serve(ctx, addr); err != nil {
				fmt.Printf("metrics server error: %v\n", err)
			}
		}()
	}

	return cliutil.RunUntilSignal(ctx, cancel, func(ctx context.Context) error {
		s.Run(ctx)
		return nil
	})
}
