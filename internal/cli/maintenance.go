package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldreg/internal/ir"
)

// NewMaintenanceCommand creates the maintenance command group.
func NewMaintenanceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Record and inspect maintenance",
		Long: `Record and inspect maintenance performed on equipment.

Any caller may log maintenance on registered equipment; the caller is
recorded as the technician who performed it.`,
	}

	cmd.AddCommand(newMaintenanceAddCommand(rootOpts))
	cmd.AddCommand(newMaintenanceGetCommand(rootOpts))
	cmd.AddCommand(newMaintenanceListCommand(rootOpts))

	return cmd
}

func newMaintenanceAddCommand(rootOpts *RootOptions) *cobra.Command {
	var in ir.MaintenanceInput

	cmd := &cobra.Command{
		Use:   "add <equipment-id>",
		Short: "Log maintenance performed on equipment",
		Example: `  fieldreg maintenance add 1 --as tech1 --type repair \
    --description "replaced PSU" --performed 120 --cost 4500 --parts PSU`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return rootOpts.runAction(cmd, ir.ActionAddMaintenance, ir.Args{
				"equipment_id":          id,
				"maintenance_type":      in.MaintenanceType,
				"description":           in.Description,
				"performed_date":        in.PerformedDate,
				"cost":                  in.Cost,
				"parts_replaced":        in.PartsReplaced,
				"next_maintenance_date": in.NextMaintenanceDate,
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.MaintenanceType, "type", "", "maintenance type, e.g. repair or inspection")
	f.StringVar(&in.Description, "description", "", "what was done")
	f.Int64Var(&in.PerformedDate, "performed", 0, "block height the work was performed at")
	f.Uint64Var(&in.Cost, "cost", 0, "cost in the smallest currency unit")
	f.StringVar(&in.PartsReplaced, "parts", "", "parts replaced")
	f.Int64Var(&in.NextMaintenanceDate, "next", 0, "block height of the next scheduled maintenance")

	return cmd
}

func newMaintenanceGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <maintenance-id>",
		Short:         "Show one maintenance record",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return rootOpts.withSession(cmd, func(s *session, f *OutputFormatter) error {
				rec, err := s.engine.Registry().GetMaintenance(id)
				if err != nil {
					return f.Fail("get maintenance", err, nil)
				}
				return f.Render(rec, func(w io.Writer) {
					writeLine(w, "Maintenance %d on equipment %d", rec.ID, rec.EquipmentID)
					writeLine(w, "  Type:        %s", rec.MaintenanceType)
					writeLine(w, "  Description: %s", rec.Description)
					writeLine(w, "  Performed:   %d by %s", rec.PerformedDate, rec.PerformedBy)
					writeLine(w, "  Cost:        %d", rec.Cost)
					writeLine(w, "  Parts:       %s", rec.PartsReplaced)
					writeLine(w, "  Next due:    %d", rec.NextMaintenanceDate)
				})
			})
		},
	}
}

func newMaintenanceListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <equipment-id>",
		Short:         "List the maintenance history of equipment",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return rootOpts.withSession(cmd, func(s *session, f *OutputFormatter) error {
				records, err := s.engine.Registry().MaintenanceHistory(id)
				if err != nil {
					return f.Fail("maintenance history", err, nil)
				}
				return f.Render(records, func(w io.Writer) {
					if len(records) == 0 {
						writeLine(w, "No maintenance for equipment %d.", id)
						return
					}
					for _, rec := range records {
						writeLine(w, "%d\t%s\theight %d\t%s\t%s", rec.ID, rec.MaintenanceType, rec.PerformedDate, rec.PerformedBy, rec.Description)
					}
				})
			})
		},
	}
}
