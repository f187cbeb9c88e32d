package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldreg/internal/ir"
	"github.com/roach88/fieldreg/internal/registry"
)

// attributesArgs converts registration attributes to action arguments.
func attributesArgs(a ir.EquipmentAttributes) ir.Args {
	return ir.Args{
		"equipment_type":         a.EquipmentType,
		"model":                  a.Model,
		"serial_number":          a.SerialNumber,
		"manufacturer":           a.Manufacturer,
		"purchase_date":          a.PurchaseDate,
		"installation_date":      a.InstallationDate,
		"location_latitude":      a.LocationLatitude,
		"location_longitude":     a.LocationLongitude,
		"location_description":   a.LocationDescription,
		"ip_address":             a.IPAddress,
		"mac_address":            a.MACAddress,
		"firmware_version":       a.FirmwareVersion,
		"power_source":           a.PowerSource,
		"coverage_radius_meters": a.CoverageRadiusMeters,
	}
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	var attrs ir.EquipmentAttributes

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new piece of equipment",
		Long: `Register a new piece of equipment owned by the caller.

The new equipment starts with status "active" and the current block
height as its registration date.

Example:
  fieldreg register --as alice --type Router --model "EdgeRouter X" \
    --serial UBNT123 --manufacturer Ubiquiti --ip 192.168.1.1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.runAction(cmd, ir.ActionRegister, attributesArgs(attrs))
		},
	}

	f := cmd.Flags()
	f.StringVar(&attrs.EquipmentType, "type", "", "equipment type, e.g. Router")
	f.StringVar(&attrs.Model, "model", "", "model name")
	f.StringVar(&attrs.SerialNumber, "serial", "", "serial number")
	f.StringVar(&attrs.Manufacturer, "manufacturer", "", "manufacturer")
	f.Int64Var(&attrs.PurchaseDate, "purchase-date", 0, "purchase block height")
	f.Int64Var(&attrs.InstallationDate, "installation-date", 0, "installation block height")
	f.StringVar(&attrs.LocationLatitude, "lat", "", "latitude")
	f.StringVar(&attrs.LocationLongitude, "lon", "", "longitude")
	f.StringVar(&attrs.LocationDescription, "location", "", "location description")
	f.StringVar(&attrs.IPAddress, "ip", "", "IP address")
	f.StringVar(&attrs.MACAddress, "mac", "", "MAC address")
	f.StringVar(&attrs.FirmwareVersion, "firmware", "", "firmware version")
	f.StringVar(&attrs.PowerSource, "power", "", "power source")
	f.Uint64Var(&attrs.CoverageRadiusMeters, "coverage", 0, "coverage radius in meters")

	return cmd
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <equipment-id>",
		Short:         "Show one piece of equipment",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return rootOpts.withSession(cmd, func(s *session, f *OutputFormatter) error {
				eq, err := s.engine.Registry().Get(id)
				if err != nil {
					return f.Fail("get equipment", err, nil)
				}
				return f.Render(eq, func(w io.Writer) { writeEquipment(w, eq) })
			})
		},
	}
}

func writeEquipment(w io.Writer, eq ir.Equipment) {
	writeLine(w, "Equipment %d", eq.ID)
	writeLine(w, "  Owner:        %s", eq.Owner)
	writeLine(w, "  Status:       %s", eq.Status)
	writeLine(w, "  Type:         %s", eq.EquipmentType)
	writeLine(w, "  Model:        %s", eq.Model)
	writeLine(w, "  Serial:       %s", eq.SerialNumber)
	writeLine(w, "  Manufacturer: %s", eq.Manufacturer)
	writeLine(w, "  Purchased:    %d", eq.PurchaseDate)
	writeLine(w, "  Installed:    %d", eq.InstallationDate)
	writeLine(w, "  Registered:   %d", eq.RegistrationDate)
	writeLine(w, "  Location:     %s (%s, %s)", eq.LocationDescription, eq.LocationLatitude, eq.LocationLongitude)
	writeLine(w, "  Network:      ip %s, mac %s, firmware %s", eq.IPAddress, eq.MACAddress, eq.FirmwareVersion)
	writeLine(w, "  Power:        %s", eq.PowerSource)
	writeLine(w, "  Coverage:     %dm", eq.CoverageRadiusMeters)
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var owner, status string

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List registered equipment",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, func(s *session, f *OutputFormatter) error {
				list := s.engine.Registry().ListEquipment(registry.ListFilter{
					Owner:  ir.Principal(owner),
					Status: ir.Status(status),
				})
				return f.Render(list, func(w io.Writer) {
					if len(list) == 0 {
						writeLine(w, "No equipment found.")
						return
					}
					for _, eq := range list {
						writeLine(w, "%d\t%s\t%s\t%s\t%s", eq.ID, eq.Status, eq.Owner, eq.EquipmentType, eq.SerialNumber)
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "only equipment owned by this principal")
	cmd.Flags().StringVar(&status, "status", "", "only equipment with this status")

	return cmd
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <equipment-id> <status>",
		Short: "Change the status of owned equipment",
		Long: fmt.Sprintf(`Change the status of equipment the caller owns.

Any status string is accepted. Common values: %v`, ir.KnownStatuses),
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return rootOpts.runAction(cmd, ir.ActionSetStatus, ir.Args{
				"equipment_id": id,
				"status":       args[1],
			})
		},
	}
}

// NewLocateCommand creates the locate command.
func NewLocateCommand(rootOpts *RootOptions) *cobra.Command {
	var loc ir.Location

	cmd := &cobra.Command{
		Use:           "locate <equipment-id>",
		Short:         "Move owned equipment to a new location",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return rootOpts.runAction(cmd, ir.ActionSetLocation, ir.Args{
				"equipment_id":         id,
				"location_latitude":    loc.Latitude,
				"location_longitude":   loc.Longitude,
				"location_description": loc.Description,
			})
		},
	}

	cmd.Flags().StringVar(&loc.Latitude, "lat", "", "latitude")
	cmd.Flags().StringVar(&loc.Longitude, "lon", "", "longitude")
	cmd.Flags().StringVar(&loc.Description, "location", "", "location description")

	return cmd
}

// NewNetworkCommand creates the network command.
func NewNetworkCommand(rootOpts *RootOptions) *cobra.Command {
	var net ir.Network

	cmd := &cobra.Command{
		Use:           "network <equipment-id>",
		Short:         "Update the IP address and firmware of owned equipment",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return rootOpts.runAction(cmd, ir.ActionSetNetwork, ir.Args{
				"equipment_id":     id,
				"ip_address":       net.IPAddress,
				"firmware_version": net.FirmwareVersion,
			})
		},
	}

	cmd.Flags().StringVar(&net.IPAddress, "ip", "", "IP address")
	cmd.Flags().StringVar(&net.FirmwareVersion, "firmware", "", "firmware version")

	return cmd
}

// NewTransferCommand creates the transfer command.
func NewTransferCommand(rootOpts *RootOptions) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "transfer <equipment-id> <new-owner>",
		Short: "Transfer owned equipment to another principal",
		Long: `Transfer equipment the caller owns to another principal.

The transfer is appended to the equipment's ownership history.

Example:
  fieldreg transfer 1 bob --as alice --reason "handover to district 2"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return rootOpts.runAction(cmd, ir.ActionTransferOwnership, ir.Args{
				"equipment_id":    id,
				"new_owner":       args[1],
				"transfer_reason": reason,
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "reason for the transfer")

	return cmd
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var seq uint64

	cmd := &cobra.Command{
		Use:   "history <equipment-id>",
		Short: "Show the ownership history of equipment",
		Long: `Show every ownership transfer of a piece of equipment, oldest first.

With --seq only that transfer is shown.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return rootOpts.withSession(cmd, func(s *session, f *OutputFormatter) error {
				reg := s.engine.Registry()
				if seq > 0 {
					rec, err := reg.TransferRecord(ir.TransferKey{EquipmentID: id, Seq: seq})
					if err != nil {
						return f.Fail("get transfer", err, nil)
					}
					return f.Render(rec, func(w io.Writer) { writeTransfer(w, rec) })
				}

				records, err := reg.OwnershipHistory(id)
				if err != nil {
					return f.Fail("ownership history", err, nil)
				}
				return f.Render(records, func(w io.Writer) {
					if len(records) == 0 {
						writeLine(w, "No transfers for equipment %d.", id)
						return
					}
					for _, rec := range records {
						writeTransfer(w, rec)
					}
				})
			})
		},
	}

	cmd.Flags().Uint64Var(&seq, "seq", 0, "show only the transfer with this sequence number")

	return cmd
}

func writeTransfer(w io.Writer, rec ir.TransferRecord) {
	writeLine(w, "%s\t%s -> %s\theight %d\t%s",
		rec.Key, rec.PreviousOwner, rec.NewOwner, rec.TransferDate, rec.TransferReason)
}
