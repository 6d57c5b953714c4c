package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/geoplaque/satellite/internal/cli/output"
	"github.com/geoplaque/satellite/internal/cliutil"
	"github.com/geoplaque/satellite/internal/satellite"
	"github.com/geoplaque/satellite/pkg/config"
)

var sessionsLimit int32

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect granted sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recently granted sessions",
	RunE:  runSessionsList,
}

func init() {
	sessionsListCmd.Flags().Int32Var(&sessionsLimit, "limit", 20, "maximum number of sessions to list")
	sessionsCmd.AddCommand(sessionsListCmd)
}

type sessionTable struct {
	sessions []satellite.SessionSummary
}

func (t sessionTable) Headers() []string {
	return []string{"ID", "DEVICE", "TASK ID", "ON RADAR", "IN SIGHT", "ON MAP"}
}

func (t sessionTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.sessions))
	for _, s := range t.sessions {
		rows = append(rows, []string{
			fmt.Sprintf("%d", s.ID),
			s.DeviceID,
			fmt.Sprintf("%d", s.SatelliteTaskID),
			fmt.Sprintf("%d", s.OnRadarRevision),
			fmt.Sprintf("%d", s.InSightRevision),
			fmt.Sprintf("%d", s.OnMapRevision),
		})
	}
	return rows
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(configFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	chain, err := cliutil.OpenChain(ctx, "satellitectl", cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database chain: %w", err)
	}
	defer chain.Close(ctx)

	store := satellite.NewStore(chain, []byte(cfg.Listener.JWTSecret))
	sessions, err := store.ListSessions(ctx, sessionsLimit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, sessions)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, sessions)
	default:
		return output.PrintTable(os.Stdout, sessionTable{sessions: sessions})
	}
}
