package registry

import (
	"github.com/roach88/fieldreg/internal/ir"
)

// EquipmentStore owns the equipment table and its id counter.
type EquipmentStore struct {
	last  int64
	items map[int64]ir.Equipment
}

// NewEquipmentStore creates an empty store. The first id assigned is 1.
func NewEquipmentStore() *EquipmentStore {
	return &EquipmentStore{items: make(map[int64]ir.Equipment)}
}

// Register stores new equipment owned by owner and returns its id.
// Status starts as active and the registration date is height.
func (s *EquipmentStore) Register(attrs ir.EquipmentAttributes, owner ir.Principal, height int64) int64 {
	s.last++
	s.items[s.last] = ir.Equipment{
		ID:                  s.last,
		Owner:               owner,
		EquipmentAttributes: attrs,
		Status:              ir.StatusActive,
		RegistrationDate:    height,
	}
	return s.last
}

// Get returns a copy of the equipment with the given id.
func (s *EquipmentStore) Get(id int64) (ir.Equipment, error) {
	eq, ok := s.items[id]
	if !ok {
		return ir.Equipment{}, notFound("get", EntityEquipment, id)
	}
	return eq, nil
}

// Exists reports whether id has been assigned.
func (s *EquipmentStore) Exists(id int64) bool {
	_, ok := s.items[id]
	return ok
}

// Len returns the number of registered devices.
func (s *EquipmentStore) Len() int {
	return len(s.items)
}

// Last returns the most recently assigned id, or 0.
func (s *EquipmentStore) Last() int64 {
	return s.last
}

// owned loads id and checks that caller owns it.
func (s *EquipmentStore) owned(op string, id int64, caller ir.Principal) (ir.Equipment, error) {
	eq, ok := s.items[id]
	if !ok {
		return ir.Equipment{}, notFound(op, EntityEquipment, id)
	}
	if eq.Owner != caller {
		return ir.Equipment{}, unauthorized(op, id, caller)
	}
	return eq, nil
}

// SetStatus replaces the status of id.
func (s *EquipmentStore) SetStatus(id int64, status ir.Status, caller ir.Principal) error {
	eq, err := s.owned("setStatus", id, caller)
	if err != nil {
		return err
	}
	eq.Status = status
	s.items[id] = eq
	return nil
}

// SetLocation replaces the three location fields of id together.
func (s *EquipmentStore) SetLocation(id int64, loc ir.Location, caller ir.Principal) error {
	eq, err := s.owned("setLocation", id, caller)
	if err != nil {
		return err
	}
	eq.LocationLatitude = loc.Latitude
	eq.LocationLongitude = loc.Longitude
	eq.LocationDescription = loc.Description
	s.items[id] = eq
	return nil
}

// SetNetwork replaces the IP address and firmware version of id together.
func (s *EquipmentStore) SetNetwork(id int64, net ir.Network, caller ir.Principal) error {
	eq, err := s.owned("setNetwork", id, caller)
	if err != nil {
		return err
	}
	eq.IPAddress = net.IPAddress
	eq.FirmwareVersion = net.FirmwareVersion
	s.items[id] = eq
	return nil
}

// checkTransfer validates a transfer without applying it.
func (s *EquipmentStore) checkTransfer(id int64, caller ir.Principal) error {
	_, err := s.owned("transferOwnership", id, caller)
	return err
}

// setOwner replaces the owner of id. Callers must have validated the
// transfer first.
func (s *EquipmentStore) setOwner(id int64, owner ir.Principal) {
	eq := s.items[id]
	eq.Owner = owner
	s.items[id] = eq
}

// List returns copies of all equipment matching keep, ordered by id.
func (s *EquipmentStore) List(keep func(ir.Equipment) bool) []ir.Equipment {
	out := make([]ir.Equipment, 0, len(s.items))
	for id := int64(1); id <= s.last; id++ {
		eq, ok := s.items[id]
		if !ok || (keep != nil && !keep(eq)) {
			continue
		}
		out = append(out, eq)
	}
	return out
}
