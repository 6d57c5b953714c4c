package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geoplaque/satellite/internal/cliutil"
	"github.com/geoplaque/satellite/internal/metrics"
	"github.com/geoplaque/satellite/internal/satellite"
	"github.com/geoplaque/satellite/pkg/config"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Satellite task engine",
	Long: `Start the Satellite task engine, accepting client connections on
the configured listener address.

Examples:
  satellited start
  satellited start --config /etc/satellite/config.yaml`,
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

	chain, err := cliutil.OpenChain(ctx, "satellite", cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database chain: %w", err)
	}
	defer chain.Close(ctx)

	pool, err := cliutil.BuildPool(cfg.MMPS.Banks)
	if err != nil {
		return fmt.Errorf("failed to build buffer pool: %w", err)
	}

	store := satellite.NewStore(chain, []byte(cfg.Listener.JWTSecret))
	server := satellite.NewServer(cfg.Listener.Addr, pool, chain, store, cfg.Listener.MaxConnections)
	server.SetShutdownTimeout(cfg.Listener.ShutdownTimeout)

	if cfg.Metrics.Enabled {
		reg := metrics.New("satellited")
		server.SetMetrics(reg)
		go cliutil.ReportBankUtilization(ctx, pool, cfg.MMPS.Banks, reg)
		addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		go func() {
			if err := reg.Serve(ctx, addr); err != nil {
				fmt.Printf("metrics server error: %v\n", err)
			}
		}()
	}

	return cliutil.RunUntilSignal(ctx, cancel, server.Serve)
}
