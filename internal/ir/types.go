package ir

import "fmt"

// Principal is an opaque identity reference naming an owner or actor.
// It is supplied by the identity collaborator and compared byte-for-byte.
type Principal string

// Status is the lifecycle tag of a piece of equipment.
//
// The set is open: any string is accepted and no transitions are enforced.
// The constants below are the tags the field teams use today.
type Status string

// Known status tags.
const (
	StatusActive         Status = "active"
	StatusMaintenance    Status = "maintenance"
	StatusDecommissioned Status = "decommissioned"
)

// KnownStatuses lists the documented tags in display order.
var KnownStatuses = []Status{StatusActive, StatusMaintenance, StatusDecommissioned}

// Known reports whether s is one of the documented tags.
func (s Status) Known() bool {
	for _, k := range KnownStatuses {
		if s == k {
			return true
		}
	}
	return false
}

// EquipmentAttributes are the caller-supplied fields of a registration.
// Owner, status and registration date are assigned by the registry.
type EquipmentAttributes struct {
	EquipmentType        string `json:"equipment_type"`
	Model                string `json:"model"`
	SerialNumber         string `json:"serial_number"`
	Manufacturer         string `json:"manufacturer"`
	PurchaseDate         int64  `json:"purchase_date"`
	InstallationDate     int64  `json:"installation_date"`
	LocationLatitude     string `json:"location_latitude"`
	LocationLongitude    string `json:"location_longitude"`
	LocationDescription  string `json:"location_description"`
	IPAddress            string `json:"ip_address"`
	MACAddress           string `json:"mac_address"`
	FirmwareVersion      string `json:"firmware_version"`
	PowerSource          string `json:"power_source"`
	CoverageRadiusMeters uint64 `json:"coverage_radius_meters"`
}

// Equipment is a registered network device.
type Equipment struct {
	ID    int64     `json:"id"`
	Owner Principal `json:"owner"`
	EquipmentAttributes
	Status           Status `json:"status"`
	RegistrationDate int64  `json:"registration_date"`
}

// Location is the mutable placement of a device.
type Location struct {
	Latitude    string `json:"location_latitude"`
	Longitude   string `json:"location_longitude"`
	Description string `json:"location_description"`
}

// Location returns the current placement of e.
func (e Equipment) Location() Location {
	return Location{
		Latitude:    e.LocationLatitude,
		Longitude:   e.LocationLongitude,
		Description: e.LocationDescription,
	}
}

// Network is the mutable addressing of a device.
type Network struct {
	IPAddress       string `json:"ip_address"`
	FirmwareVersion string `json:"firmware_version"`
}

// TransferKey identifies one ownership transfer of one piece of equipment.
// Seq counts transfers of that equipment, starting at 1.
type TransferKey struct {
	EquipmentID int64  `json:"equipment_id"`
	Seq         uint64 `json:"seq"`
}

// String renders the key as "<equipment>-<seq>".
func (k TransferKey) String() string {
	return fmt.Sprintf("%d-%d", k.EquipmentID, k.Seq)
}

// ParseTransferKey parses the "<equipment>-<seq>" form produced by String.
func ParseTransferKey(s string) (TransferKey, error) {
	var k TransferKey
	if _, err := fmt.Sscanf(s, "%d-%d", &k.EquipmentID, &k.Seq); err != nil {
		return TransferKey{}, fmt.Errorf("parse transfer key %q: %w", s, err)
	}
	if k.String() != s {
		return TransferKey{}, fmt.Errorf("parse transfer key %q: trailing input", s)
	}
	return k, nil
}

// TransferRecord is an immutable entry of the ownership history.
type TransferRecord struct {
	Key            TransferKey `json:"key"`
	PreviousOwner  Principal   `json:"previous_owner"`
	NewOwner       Principal   `json:"new_owner"`
	TransferDate   int64       `json:"transfer_date"`
	TransferReason string      `json:"transfer_reason"`
}

// MaintenanceInput is the caller-supplied part of a maintenance record.
type MaintenanceInput struct {
	EquipmentID         int64  `json:"equipment_id"`
	MaintenanceType     string `json:"maintenance_type"`
	Description         string `json:"description"`
	PerformedDate       int64  `json:"performed_date"`
	Cost                uint64 `json:"cost"` // smallest currency unit
	PartsReplaced       string `json:"parts_replaced"`
	NextMaintenanceDate int64  `json:"next_maintenance_date"`
}

// MaintenanceRecord is an immutable service event for one device.
type MaintenanceRecord struct {
	ID int64 `json:"id"`
	MaintenanceInput
	PerformedBy Principal `json:"performed_by"`
}
