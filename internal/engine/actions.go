package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/fieldreg/internal/ir"
	"github.com/roach88/fieldreg/internal/registry"
)

// Actions lists every action the engine dispatches, in display order.
var Actions = []ir.ActionRef{
	ir.ActionRegister,
	ir.ActionSetStatus,
	ir.ActionSetLocation,
	ir.ActionSetNetwork,
	ir.ActionTransferOwnership,
	ir.ActionAddMaintenance,
}

// request is a decoded action ready to run against the registry.
type request interface {
	// args returns the normalized arguments written to the journal.
	args() ir.Args
	// apply runs the action. The returned Args are the completion result.
	apply(ctx context.Context, svc *registry.Service) (ir.Args, error)
}

// decodeRequest validates args for action and normalizes them. Missing
// optional fields take their zero value so that the journaled args always
// carry every field.
func decodeRequest(action ir.ActionRef, args ir.Args) (request, error) {
	if args == nil {
		args = ir.Args{}
	}
	d := decoder{args: args}

	var req request
	switch action {
	case ir.ActionRegister:
		req = registerRequest{attrs: ir.EquipmentAttributes{
			EquipmentType:        d.str("equipment_type"),
			Model:                d.str("model"),
			SerialNumber:         d.str("serial_number"),
			Manufacturer:         d.str("manufacturer"),
			PurchaseDate:         d.integer("purchase_date"),
			InstallationDate:     d.integer("installation_date"),
			LocationLatitude:     d.str("location_latitude"),
			LocationLongitude:    d.str("location_longitude"),
			LocationDescription:  d.str("location_description"),
			IPAddress:            d.str("ip_address"),
			MACAddress:           d.str("mac_address"),
			FirmwareVersion:      d.str("firmware_version"),
			PowerSource:          d.str("power_source"),
			CoverageRadiusMeters: d.unsigned("coverage_radius_meters"),
		}}
	case ir.ActionSetStatus:
		req = statusRequest{id: d.id(), status: ir.Status(d.text("status"))}
	case ir.ActionSetLocation:
		req = locationRequest{id: d.id(), loc: ir.Location{
			Latitude:    d.str("location_latitude"),
			Longitude:   d.str("location_longitude"),
			Description: d.str("location_description"),
		}}
	case ir.ActionSetNetwork:
		req = networkRequest{id: d.id(), net: ir.Network{
			IPAddress:       d.str("ip_address"),
			FirmwareVersion: d.str("firmware_version"),
		}}
	case ir.ActionTransferOwnership:
		req = transferRequest{
			id:       d.id(),
			newOwner: ir.Principal(d.required("new_owner")),
			reason:   d.str("transfer_reason"),
		}
	case ir.ActionAddMaintenance:
		req = maintenanceRequest{in: ir.MaintenanceInput{
			EquipmentID:         d.id(),
			MaintenanceType:     d.str("maintenance_type"),
			Description:         d.str("description"),
			PerformedDate:       d.integer("performed_date"),
			Cost:                d.unsigned("cost"),
			PartsReplaced:       d.str("parts_replaced"),
			NextMaintenanceDate: d.integer("next_maintenance_date"),
		}}
	default:
		return nil, newUnknownAction(action)
	}

	if err := d.err(); err != nil {
		return nil, newInvalidArgs(action, err)
	}
	return req, nil
}

// decoder collects field errors while reading Args.
type decoder struct {
	args ir.Args
	errs []error
}

// str reads an optional string. Strings are normalized to the form the
// journal stores, so replay applies the same bytes the live registry saw.
func (d *decoder) str(key string) string {
	if _, ok := d.args[key]; !ok {
		return ""
	}
	return d.text(key)
}

// text reads a string that must be present but may be empty.
func (d *decoder) text(key string) string {
	v, err := d.args.String(key)
	if err != nil {
		d.add(err)
		return ""
	}
	n, err := ir.NormalizeString(v)
	if err != nil {
		d.add(fmt.Errorf("argument %q: %w", key, err))
		return ""
	}
	return n
}

func (d *decoder) required(key string) string {
	before := len(d.errs)
	v := d.text(key)
	if len(d.errs) == before && v == "" {
		d.add(fmt.Errorf("argument %q must not be empty", key))
	}
	return v
}

func (d *decoder) integer(key string) int64 {
	if _, ok := d.args[key]; !ok {
		return 0
	}
	v, err := d.args.Int(key)
	d.add(err)
	return v
}

func (d *decoder) unsigned(key string) uint64 {
	if _, ok := d.args[key]; !ok {
		return 0
	}
	v, err := d.args.Uint(key)
	d.add(err)
	return v
}

// id reads the required equipment_id. Non-positive ids are accepted here
// and answered with 404 by the registry.
func (d *decoder) id() int64 {
	v, err := d.args.Int("equipment_id")
	d.add(err)
	return v
}

func (d *decoder) add(err error) {
	if err != nil {
		d.errs = append(d.errs, err)
	}
}

func (d *decoder) err() error {
	return errors.Join(d.errs...)
}

func equipmentResult(id int64) ir.Args {
	return ir.Args{"equipment_id": id}
}

type registerRequest struct{ attrs ir.EquipmentAttributes }

func (r registerRequest) args() ir.Args {
	a := r.attrs
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

func (r registerRequest) apply(ctx context.Context, svc *registry.Service) (ir.Args, error) {
	id, err := svc.Register(ctx, r.attrs)
	if err != nil {
		return nil, err
	}
	return equipmentResult(id), nil
}

type statusRequest struct {
	id     int64
	status ir.Status
}

func (r statusRequest) args() ir.Args {
	return ir.Args{"equipment_id": r.id, "status": string(r.status)}
}

func (r statusRequest) apply(ctx context.Context, svc *registry.Service) (ir.Args, error) {
	id, err := svc.SetStatus(ctx, r.id, r.status)
	if err != nil {
		return nil, err
	}
	return equipmentResult(id), nil
}

type locationRequest struct {
	id  int64
	loc ir.Location
}

func (r locationRequest) args() ir.Args {
	return ir.Args{
		"equipment_id":         r.id,
		"location_latitude":    r.loc.Latitude,
		"location_longitude":   r.loc.Longitude,
		"location_description": r.loc.Description,
	}
}

func (r locationRequest) apply(ctx context.Context, svc *registry.Service) (ir.Args, error) {
	id, err := svc.SetLocation(ctx, r.id, r.loc)
	if err != nil {
		return nil, err
	}
	return equipmentResult(id), nil
}

type networkRequest struct {
	id  int64
	net ir.Network
}

func (r networkRequest) args() ir.Args {
	return ir.Args{
		"equipment_id":     r.id,
		"ip_address":       r.net.IPAddress,
		"firmware_version": r.net.FirmwareVersion,
	}
}

func (r networkRequest) apply(ctx context.Context, svc *registry.Service) (ir.Args, error) {
	id, err := svc.SetNetwork(ctx, r.id, r.net)
	if err != nil {
		return nil, err
	}
	return equipmentResult(id), nil
}

type transferRequest struct {
	id       int64
	newOwner ir.Principal
	reason   string
}

func (r transferRequest) args() ir.Args {
	return ir.Args{
		"equipment_id":    r.id,
		"new_owner":       string(r.newOwner),
		"transfer_reason": r.reason,
	}
}

func (r transferRequest) apply(ctx context.Context, svc *registry.Service) (ir.Args, error) {
	id, err := svc.TransferOwnership(ctx, r.id, r.newOwner, r.reason)
	if err != nil {
		return nil, err
	}
	return equipmentResult(id), nil
}

type maintenanceRequest struct{ in ir.MaintenanceInput }

func (r maintenanceRequest) args() ir.Args {
	in := r.in
	return ir.Args{
		"equipment_id":          in.EquipmentID,
		"maintenance_type":      in.MaintenanceType,
		"description":           in.Description,
		"performed_date":        in.PerformedDate,
		"cost":                  in.Cost,
		"parts_replaced":        in.PartsReplaced,
		"next_maintenance_date": in.NextMaintenanceDate,
	}
}

func (r maintenanceRequest) apply(ctx context.Context, svc *registry.Service) (ir.Args, error) {
	id, err := svc.AddMaintenance(ctx, r.in)
	if err != nil {
		return nil, err
	}
	return ir.Args{"maintenance_id": id}, nil
}

// outcome maps a registry result to the journaled completion fields.
// Errors other than registry errors are returned unchanged.
func outcome(result ir.Args, err error) (string, int, ir.Args, error) {
	if err == nil {
		return ir.CaseSuccess, 0, result, nil
	}
	var re *registry.Error
	if !errors.As(err, &re) {
		return "", 0, nil, err
	}
	detail := ir.Args{"entity": re.Entity, "id": re.ID}
	switch re.Code {
	case registry.CodeNotFound:
		return ir.CaseNotFound, int(re.Code), detail, nil
	case registry.CodeUnauthorized:
		detail["caller"] = string(re.Caller)
		return ir.CaseUnauthorized, int(re.Code), detail, nil
	default:
		return "", 0, nil, err
	}
}
