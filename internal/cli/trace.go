package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldreg/internal/ir"
	"github.com/roach88/fieldreg/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Correlation string
	Action      string
	EquipmentID int64
}

// TraceEvent represents a single event in the trace timeline.
type TraceEvent struct {
	Seq        int64        `json:"seq"`
	Type       string       `json:"type"` // "invocation" or "completion"
	ID         string       `json:"id"`
	Token      string       `json:"token,omitempty"`
	Action     ir.ActionRef `json:"action,omitempty"`
	Caller     ir.Principal `json:"caller,omitempty"`
	Height     int64        `json:"height,omitempty"`
	Args       ir.Args      `json:"args,omitempty"`
	OutputCase string       `json:"output_case,omitempty"`
	Code       int          `json:"code,omitempty"`
	Result     ir.Args      `json:"result,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int `json:"total_events"`
	Invocations int `json:"invocations"`
	Completions int `json:"completions"`
	Rejections  int `json:"rejections"`
	Pending     int `json:"pending"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show journaled invocations and their outcomes",
		Long: `Show the journal as a timeline of invocations and completions.

Filters combine: --correlation selects one correlation token (an import batch,
for instance), --action one action and --equipment every action that
touched one piece of equipment, including its registration.

Examples:
  fieldreg trace --equipment 1
  fieldreg trace --correlation 0192f0c4-... --format json
  fieldreg trace --action Equipment.transferOwnership`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Correlation, "correlation", "", "only this correlation token")
	cmd.Flags().StringVar(&opts.Action, "action", "", "only this action, e.g. Equipment.setStatus")
	cmd.Flags().Int64Var(&opts.EquipmentID, "equipment", 0, "only actions on this equipment id")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	st, err := store.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	entries, err := st.ReadEntries(ctx, store.Filter{
		Token:       opts.Correlation,
		Action:      ir.ActionRef(opts.Action),
		EquipmentID: opts.EquipmentID,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := buildTrace(entries)

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

// buildTrace flattens entries into a timeline ordered by seq.
func buildTrace(entries []store.Entry) TraceResult {
	result := TraceResult{Timeline: []TraceEvent{}}

	for _, e := range entries {
		inv := e.Invocation
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:    inv.Seq,
			Type:   "invocation",
			ID:     inv.ID,
			Token:  inv.Token,
			Action: inv.Action,
			Caller: inv.Caller,
			Height: inv.Height,
			Args:   inv.Args,
		})
		result.Stats.Invocations++

		if e.Completion == nil {
			result.Stats.Pending++
			continue
		}
		comp := e.Completion
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:        comp.Seq,
			Type:       "completion",
			ID:         comp.ID,
			OutputCase: comp.OutputCase,
			Code:       comp.Code,
			Result:     comp.Result,
		})
		result.Stats.Completions++
		if comp.OutputCase != ir.CaseSuccess {
			result.Stats.Rejections++
		}
	}

	result.Stats.TotalEvents = len(result.Timeline)
	return result
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(CLIResponse{
		Status: "ok",
		Data:   result,
	})
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "No journal entries found.")
		return nil
	}

	for _, ev := range result.Timeline {
		switch ev.Type {
		case "invocation":
			fmt.Fprintf(w, "[%d] → %s by %s at height %d\n", ev.Seq, ev.Action, ev.Caller, ev.Height)
			if verbose {
				fmt.Fprintf(w, "      token: %s\n", ev.Token)
				fmt.Fprintf(w, "      args:  %s\n", formatArgs(ev.Args))
			}
		case "completion":
			marker := "✓"
			if ev.OutputCase != ir.CaseSuccess {
				marker = "✗"
			}
			fmt.Fprintf(w, "[%d] %s %s %s\n", ev.Seq, marker, ev.OutputCase, formatArgs(ev.Result))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d invocation(s), %d completion(s), %d rejected, %d pending\n",
		result.Stats.Invocations, result.Stats.Completions, result.Stats.Rejections, result.Stats.Pending)
	return nil
}
