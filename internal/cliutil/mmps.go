package cliutil

import (
	"context"
	"fmt"
	"time"

	"github.com/geoplaque/satellite/pkg/config"
	"github.com/geoplaque/satellite/pkg/mmps"
)

// BankMetrics reports per-bank buffer utilization. Optional: a nil
// BankMetrics skips reporting.
type BankMetrics interface {
	SetBankUtilization(bankID uint32, ratio float64)
}

const bankUtilizationInterval = 5 * time.Second

// BuildPool constructs an mmps.Pool sized for banks and initializes each
// one, applying its on-demand and shared-memory options. Shared by every
// binary that allocates buffers (satellited, messengerd) so bank setup
// from config stays in one place.
func BuildPool(banks []config.BankConfig) (*mmps.Pool, error) {
	pool := mmps.NewPool(len(banks))
	for _, b := range banks {
		if _, err := pool.InitBank(b.ID, uint32(b.BufferSize), uint32(b.FollowerSize), b.Count); err != nil {
			return nil, fmt.Errorf("init bank %d: %w", b.ID, err)
		}
		if b.SharedMemoryPath != "" {
			if err := pool.MapSharedMemoryBank(b.ID, b.SharedMemoryPath); err != nil {
				return nil, fmt.Errorf("map shared memory for bank %d: %w", b.ID, err)
			}
		}
		if b.OnDemand {
			if err := pool.AllocateOnDemand(b.ID); err != nil {
				return nil, fmt.Errorf("enable on-demand for bank %d: %w", b.ID, err)
			}
		}
	}
	return pool, nil
}

// ReportBankUtilization polls pool's banks on a fixed interval and
// reports each one's fraction of buffers currently in use to metrics,
// until ctx is cancelled. Run as its own goroutine alongside the
// binary's server loop.
func ReportBankUtilization(ctx context.Context, pool *mmps.Pool, banks []config.BankConfig, metrics BankMetrics) {
	ticker := time.NewTicker(bankUtilizationInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, b := range banks {
				inUse, err := pool.NumberOfBuffersInUse(b.ID)
				if err != nil || b.Count == 0 {
					continue
				}
				metrics.SetBankUtilization(b.ID, float64(inUse)/float64(b.Count))
			}
		}
	}
}
