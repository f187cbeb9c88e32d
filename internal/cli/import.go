package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldreg/internal/engine"
	"github.com/roach88/fieldreg/internal/ir"
	"github.com/roach88/fieldreg/internal/manifest"
)

// ImportResult holds the outcome of an import.
type ImportResult struct {
	Manifest string         `json:"manifest"`
	Token    string         `json:"token"`
	Imported []ImportedItem `json:"imported"`
}

// ImportedItem is one registered manifest entry.
type ImportedItem struct {
	SerialNumber string `json:"serial_number"`
	EquipmentID  int64  `json:"equipment_id"`
	Seq          int64  `json:"seq"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <manifest>",
		Short: "Register every piece of equipment in a manifest",
		Long: `Register every piece of equipment listed in a CUE or JSON manifest.

The manifest is validated first and nothing is registered if any entry is
invalid. All registrations share one correlation token, so the batch can
be inspected with fieldreg trace --token.

Example:
  fieldreg import site-42.cue --as alice`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	m, err := manifest.Load(path)
	if err != nil {
		var verrs manifest.ValidationErrors
		if errors.As(err, &verrs) {
			return outputValidationErrors(f, verrs)
		}
		return WrapExitError(ExitCommandError, "failed to load manifest", err)
	}
	f.VerboseLog("Loaded %d entries from %s", len(m.Equipment), path)

	return opts.withSession(cmd, func(s *session, f *OutputFormatter) error {
		token := s.engine.NewToken()
		ctx := engine.WithCorrelation(cmd.Context(), token)

		result := ImportResult{Manifest: path, Token: token, Imported: []ImportedItem{}}
		for i, attrs := range m.Equipment {
			out, err := s.execute(ctx, ir.ActionRegister, attributesArgs(attrs))
			if err != nil {
				return f.Fail(fmt.Sprintf("import stopped at entry %d (%d registered)", i, len(result.Imported)), err, result)
			}
			id, err := out.Completion.Result.Int("equipment_id")
			if err != nil {
				return WrapExitError(ExitCommandError, "unexpected registration result", err)
			}
			result.Imported = append(result.Imported, ImportedItem{
				SerialNumber: attrs.SerialNumber,
				EquipmentID:  id,
				Seq:          out.Completion.Seq,
			})
		}

		return f.Render(result, func(w io.Writer) {
			for _, item := range result.Imported {
				writeLine(w, "✓ %s → equipment %d", item.SerialNumber, item.EquipmentID)
			}
			writeLine(w, "Imported %d piece(s) of equipment (token %s)", len(result.Imported), token)
		})
	})
}
