package cliutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/geoplaque/satellite/internal/cli/health"
	"github.com/geoplaque/satellite/internal/cli/output"
	"github.com/geoplaque/satellite/internal/cli/timeutil"
	"github.com/geoplaque/satellite/pkg/config"
)

// daemonStatus is the table/JSON/YAML projection of a daemon's /health
// response, mirroring marmos91-dittofs/cmd/dittofs/commands/status.go's
// ServerStatus.
type daemonStatus struct {
	Status    string `json:"status" yaml:"status"`
	Healthy   bool   `json:"healthy" yaml:"healthy"`
	Service   string `json:"service,omitempty" yaml:"service,omitempty"`
	StartedAt string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewStatusCommand returns a "status" subcommand that loads cfg,
// queries the daemon's own /health endpoint (served alongside /metrics
// by internal/metrics.Registry), and prints the result. Grounded on
// marmos91-dittofs/cmd/dittofs/commands/status.go's health-check +
// output-format switch, simplified since this domain's daemons have no
// PID file or separate --api-port flag: the health port is always
// cfg.Metrics.Port.
func NewStatusCommand(getConfigFile func() string) *cobra.Command {
	var outputFormat string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check this daemon's health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.MustLoad(getConfigFile())
			if err != nil {
				return err
			}

			status := daemonStatus{Status: "unreachable"}
			if !cfg.Metrics.Enabled {
				status.Error = "metrics.enabled is false; no health endpoint to query"
			} else {
				status = queryHealth(cfg.Metrics.Port)
			}

			format, err := output.ParseFormat(outputFormat)
			if err != nil {
				return err
			}
			switch format {
			case output.FormatJSON:
				return output.PrintJSON(os.Stdout, status)
			case output.FormatYAML:
				return output.PrintYAML(os.Stdout, status)
			default:
				printStatusTable(status)
				return nil
			}
		},
	}
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table|json|yaml)")
	return cmd
}

func queryHealth(port int) daemonStatus {
	status := daemonStatus{Status: "unreachable"}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer resp.Body.Close()

	var healthResp health.Response
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		status.Status = "unknown"
		status.Error = "failed to parse health response"
		return status
	}

	status.Status = healthResp.Status
	status.Healthy = healthResp.Status == "healthy"
	status.Service = healthResp.Data.Service
	status.StartedAt = healthResp.Data.StartedAt
	status.Uptime = healthResp.Data.Uptime
	status.Error = healthResp.Error
	return status
}

func printStatusTable(status daemonStatus) {
	fmt.Println()
	if status.Healthy {
		fmt.Printf("  Status:     \033[32m● %s\033[0m\n", status.Status)
	} else if status.Status == "unreachable" {
		fmt.Printf("  Status:     \033[31m○ %s\033[0m\n", status.Status)
	} else {
		fmt.Printf("  Status:     \033[33m● %s\033[0m\n", status.Status)
	}
	if status.Service != "" {
		fmt.Printf("  Service:    %s\n", status.Service)
	}
	if status.StartedAt != "" {
		fmt.Printf("  Started:    %s\n", timeutil.FormatTime(status.StartedAt))
	}
	if status.Uptime != "" {
		fmt.Printf("  Uptime:     %s\n", timeutil.FormatUptime(status.Uptime))
	}
	if status.Error != "" {
		fmt.Printf("  Error:      %s\n", status.Error)
	}
	fmt.Println()
}
