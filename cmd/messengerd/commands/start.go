package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geoplaque/satellite/internal/cliutil"
	"github.com/geoplaque/satellite/internal/messenger"
	"github.com/geoplaque/satellite/internal/metrics"
	"github.com/geoplaque/satellite/pkg/config"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the APNs notification pipeline",
	Long: `Start messengerd, draining outstanding notifications and delivering
them to Apple's Push Notification service.

Examples:
  messengerd start
  messengerd start --config /etc/satellite/config.yaml`,
	RunE: runStart,
}

// batchMode translates the validated "legacy"/"frame" config string
// into messenger's BatchMode enum.
func batchMode(s string) messenger.BatchMode {
	if s == "frame" {
		return messenger.BatchModeFrame
	}
	return messenger.BatchModeLegacy
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

	chain, err := cliutil.OpenChain(ctx, "messenger", cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database chain: %w", err)
	}
	defer chain.Close(ctx)

	pool, err := cliutil.BuildPool(cfg.MMPS.Banks)
	if err != nil {
		return fmt.Errorf("failed to build buffer pool: %w", err)
	}

	tlsConfig, err := cliutil.LoadClientTLSConfig(cfg.Messenger.TLSCertPath, cfg.Messenger.TLSKeyPath)
	if err != nil {
		return fmt.Errorf("failed to load APNs TLS material: %w", err)
	}

	m := messenger.New(chain, pool, messenger.SenderConfig{
		Host:      cfg.Messenger.Host,
		Port:      cfg.Messenger.Port,
		TLSConfig: tlsConfig,
		Mode:      batchMode(cfg.Messenger.BatchMode),
	})

	if cfg.Metrics.Enabled {
		reg := metrics.New("messengerd")
		m.SetMetrics(reg)
		go cliutil.ReportBankUtilization(ctx, pool, cfg.MMPS.Banks, reg)
		addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		go func() {
			if err := reg.Serve(ctx, addr); err != nil {
				fmt.Printf("metrics server error: %v\n", err)
			}
		}()
	}

	return cliutil.RunUntilSignal(ctx, cancel, m.Run)
}
