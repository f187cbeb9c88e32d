package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldreg/internal/config"
)

// RootOptions holds global flags for all commands. Config, Logger and the
// DB and Format fields are resolved in PersistentPreRunE.
type RootOptions struct {
	ConfigPath string
	DB         string
	As         string // caller principal
	Token      string // signed identity token
	Height     int64
	Verbose    bool
	Format     string // "json" | "text"

	Config *config.Config
	Logger *slog.Logger

	heightSet bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = config.Formats

// NewRootCommand creates the root command for the fieldreg CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "fieldreg",
		Short: "fieldreg - field network equipment registry",
		Long: `A registry of field network equipment: routers, access points and
antennas with their owners, placement, addressing, ownership transfers
and maintenance history.

Every change is journaled to SQLite and the registry is rebuilt from the
journal on each run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", "", "config file (default ./fieldreg.yaml, then ~/.config/fieldreg/config.yaml)")
	pf.StringVar(&opts.DB, "db", config.Defaults().DB, "path to the SQLite journal")
	pf.StringVar(&opts.As, "as", "", "caller principal")
	pf.StringVar(&opts.Token, "token", "", "signed identity token naming the caller")
	pf.Int64Var(&opts.Height, "height", 0, "block height to record (default: one past the journal)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewLocateCommand(opts))
	cmd.AddCommand(NewNetworkCommand(opts))
	cmd.AddCommand(NewTransferCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewMaintenanceCommand(opts))
	cmd.AddCommand(NewInvokeCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))

	return cmd
}

// load resolves configuration for the command about to run.
func (o *RootOptions) load(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if o.As != "" && o.Token != "" {
		return NewExitError(ExitCommandError, "--as and --token are mutually exclusive")
	}

	cfg, err := config.Load(o.ConfigPath, flags)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	o.Config = cfg
	o.DB = cfg.DB
	o.Format = cfg.Format
	o.heightSet = flags.Changed("height")
	o.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
