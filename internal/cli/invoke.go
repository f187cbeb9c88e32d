package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldreg/internal/engine"
	"github.com/roach88/fieldreg/internal/ir"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Args string
}

// OutcomeView is the output of a mutating command.
type OutcomeView struct {
	Action       ir.ActionRef `json:"action"`
	Caller       ir.Principal `json:"caller"`
	Height       int64        `json:"height"`
	Seq          int64        `json:"seq"`
	InvocationID string       `json:"invocation_id"`
	CompletionID string       `json:"completion_id"`
	OutputCase   string       `json:"output_case"`
	Code         int          `json:"code"`
	Result       ir.Args      `json:"result"`
}

func newOutcomeView(out engine.Outcome) OutcomeView {
	return OutcomeView{
		Action:       out.Invocation.Action,
		Caller:       out.Invocation.Caller,
		Height:       out.Invocation.Height,
		Seq:          out.Completion.Seq,
		InvocationID: out.Invocation.ID,
		CompletionID: out.Completion.ID,
		OutputCase:   out.Completion.OutputCase,
		Code:         out.Completion.Code,
		Result:       out.Completion.Result,
	}
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <action>",
		Short: "Run any registry action with JSON arguments",
		Long: `Run a registry action with its arguments given as a JSON object.

Actions:
  Equipment.register           Equipment.setStatus
  Equipment.setLocation        Equipment.setNetwork
  Equipment.transferOwnership  Maintenance.add

Example:
  fieldreg invoke Equipment.setStatus --as alice --args '{"equipment_id":1,"status":"maintenance"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invokeAction(opts, ir.ActionRef(args[0]), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "{}", "action arguments as JSON")

	return cmd
}

func invokeAction(opts *InvokeOptions, action ir.ActionRef, cmd *cobra.Command) error {
	args, err := ir.DecodeArgs([]byte(opts.Args))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --args JSON", err)
	}
	return opts.runAction(cmd, action, args)
}

// runAction executes one action in a fresh session and reports the outcome.
func (o *RootOptions) runAction(cmd *cobra.Command, action ir.ActionRef, args ir.Args) error {
	return o.withSession(cmd, func(s *session, f *OutputFormatter) error {
		out, err := s.execute(cmd.Context(), action, args)
		if err != nil && out.Completion.ID == "" {
			return f.Fail(fmt.Sprintf("%s failed", action), err, nil)
		}
		f.VerboseLog("invocation %s (token %s)", out.Invocation.ID, out.Invocation.Token)
		return renderOutcome(f, out, err)
	})
}

// renderOutcome writes a journaled outcome. A rejection is still journaled,
// so it is reported with its record and a failure exit code.
func renderOutcome(f *OutputFormatter, out engine.Outcome, rejected error) error {
	view := newOutcomeView(out)
	token := out.Invocation.Token

	if rejected == nil {
		if f.Format == "json" {
			return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: view, TraceID: token})
		}
		fmt.Fprintf(f.Writer, "✓ %s %s (seq %d, height %d)\n", view.Action, formatArgs(view.Result), view.Seq, view.Height)
		return nil
	}

	code, exit := classify(rejected)
	if f.Format == "json" {
		if err := json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status:  "error",
			Error:   &CLIError{Code: code, Message: rejected.Error(), Details: view},
			TraceID: token,
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(f.Writer, "✗ %s %s: %s (seq %d)\n", view.Action, view.OutputCase, rejected, view.Seq)
	}
	return WrapExitError(exit, fmt.Sprintf("%s rejected", view.Action), rejected)
}

// formatArgs renders args as sorted key=value pairs.
func formatArgs(args ir.Args) string {
	parts := make([]string, 0, len(args))
	for _, k := range ir.SortedKeys(args) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, args[k]))
	}
	return strings.Join(parts, " ")
}

// parseID parses an equipment or maintenance id argument.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, fmt.Sprintf("invalid id %q", s), err)
	}
	return id, nil
}

// writeLine is fmt.Fprintf with a trailing newline.
func writeLine(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}
