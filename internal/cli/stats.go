package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldreg/internal/registry"
)

// StatsResult summarizes the registry and its journal.
type StatsResult struct {
	registry.Stats
	Seq         int64 `json:"seq"`
	Height      int64 `json:"height"`
	Invocations int   `json:"invocations"`
	Repaired    int   `json:"repaired"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats",
		Short:         "Show registry record counts and the journal position",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, func(s *session, f *OutputFormatter) error {
				pos := s.engine.Position()
				result := StatsResult{
					Stats:       s.engine.Registry().Stats(),
					Seq:         pos.Seq,
					Height:      pos.Height,
					Invocations: s.report.Invocations,
					Repaired:    s.report.Repaired,
				}
				return f.Render(result, func(w io.Writer) {
					writeLine(w, "Equipment:           %d", result.Equipment)
					writeLine(w, "Transfers:           %d", result.Transfers)
					writeLine(w, "Maintenance records: %d", result.MaintenanceRecords)
					writeLine(w, "Journal:             %d invocation(s), seq %d, height %d",
						result.Invocations, result.Seq, result.Height)
				})
			})
		},
	}
}
