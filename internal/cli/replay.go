package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldreg/internal/engine"
	"github.com/roach88/fieldreg/internal/store"
	"github.com/roach88/fieldreg/internal/tracing"
)

// ReplayResult holds the result of a replay verification.
type ReplayResult struct {
	Database      string `json:"database"`
	Deterministic bool   `json:"deterministic"`
	engine.ReplayReport
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Verify the journal replays to the recorded outcomes",
		Long: `Replay every journaled invocation into a scratch registry and verify
that each recorded completion is reproduced exactly.

The journal is not modified. Invocations without a recorded completion are
counted as pending.

Exit codes:
  0 - Replay reproduced every recorded completion
  1 - At least one completion differs
  2 - Command error (unreadable journal, etc.)

Examples:
  fieldreg replay --db ./fieldreg.db
  fieldreg replay --db ./fieldreg.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}

	return cmd
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	provider, err := tracing.NewProvider(opts.Config.Tracing)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start tracing", err)
	}
	defer provider.Shutdown(ctx)

	st, err := store.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	report, err := engine.Verify(ctx, st,
		engine.WithLogger(opts.Logger),
		engine.WithTracer(provider.Tracer()))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay journal", err)
	}

	result := ReplayResult{
		Database:      opts.DB,
		Deterministic: report.Deterministic(),
		ReplayReport:  report,
	}
	if result.Mismatches == nil {
		result.Mismatches = []engine.Mismatch{}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if !result.Deterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDeterminism,
			Message: fmt.Sprintf("%d record(s) did not replay", len(result.Mismatches)),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, "replay is not deterministic")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if result.Invocations == 0 {
		fmt.Fprintln(w, "No invocations found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replayed %d invocation(s): %d verified, %d pending\n",
		result.Invocations, result.Verified, result.Pending)

	for _, m := range result.Mismatches {
		fmt.Fprintf(w, "✗ seq %d %s: %s differs\n", m.Seq, m.Action, m.Kind)
		if verbose {
			fmt.Fprintf(w, "    recorded: %s\n", m.Recorded)
			fmt.Fprintf(w, "    replayed: %s\n", m.Replayed)
		}
	}

	if !result.Deterministic {
		fmt.Fprintf(w, "\n✗ %d record(s) did not replay\n", len(result.Mismatches))
		return NewExitError(ExitFailure, "replay is not deterministic")
	}

	fmt.Fprintln(w, "✓ Journal replay is deterministic")
	return nil
}
