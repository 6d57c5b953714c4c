package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geoplaque/satellite/internal/broadcaster"
	"github.com/geoplaque/satellite/internal/cliutil"
	"github.com/geoplaque/satellite/internal/logger"
	"github.com/geoplaque/satellite/internal/metrics"
	"github.com/geoplaque/satellite/pkg/config"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the revised-sessions broadcaster",
	Long: `Start the broadcaster, polling the journal for revised sessions and
serving them to the Satellite consumer over a loopback listener.

Examples:
  broadcasterd start
  broadcasterd start --config /etc/satellite/config.yaml`,
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

	chain, err := cliutil.OpenChain(ctx, "broadcaster", cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database chain: %w", err)
	}
	defer chain.Close(ctx)

	b := broadcaster.New(cfg.Broadcaster.Addr, chain)
	if cfg.Broadcaster.BatchCap > 0 {
		b.SetBatchCap(cfg.Broadcaster.BatchCap)
	}

	if configFile := root.ConfigFile(); configFile != "" {
		go func() {
			if err := config.Watch(ctx, configFile, func(reloaded *config.Config) {
				if reloaded.Broadcaster.BatchCap > 0 {
					b.SetBatchCap(reloaded.Broadcaster.BatchCap)
					logger.InfoCtx(ctx, "applied reloaded batch cap", "batch_cap", reloaded.Broadcaster.BatchCap)
				}
			}); err != nil {
				logger.WarnCtx(ctx, "config watch stopped", "error", err)
			}
		}()
	}

	if cfg.Metrics.Enabled {
		reg := metrics.New("broadcasterd")
		b.SetMetrics(reg)
		addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		go func() {
			if err := reg.Serve(ctx, addr); err != nil {
				fmt.Printf("metrics server error: %v\n", err)
			}
		}()
	}

	return cliutil.RunUntilSignal(ctx, cancel, b.Run)
}
