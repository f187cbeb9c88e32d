package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldreg/internal/manifest"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Errors []manifest.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Validate an equipment manifest without importing it",
		Long: `Validate a CUE or JSON equipment manifest without registering anything.

Checks syntax, the equipment schema (required fields, MAC address format,
non-negative dates and coverage), date order and duplicate serial numbers.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	validationErrors, err := manifest.Validate(path)
	if err != nil {
		if outErr := formatter.Error(ErrCodeGeneric, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "failed to read manifest", err)
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	return formatter.Render(ValidationResult{Valid: true}, func(w io.Writer) {
		fmt.Fprintln(w, "✓ Manifest is valid")
	})
}

// outputValidationErrors reports manifest problems and returns exit code 1.
func outputValidationErrors(formatter *OutputFormatter, errs []manifest.ValidationError) error {
	if formatter.Format == "json" {
		if err := formatter.Error(ErrCodeInvalidManifest, fmt.Sprintf("%d validation error(s)", len(errs)),
			ValidationResult{Valid: false, Errors: errs}); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		fmt.Fprintf(w, "✗ %d validation error(s):\n", len(errs))
		for _, e := range errs {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("manifest has %d validation error(s)", len(errs)))
}
