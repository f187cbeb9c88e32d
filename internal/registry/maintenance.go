package registry

import (
	"github.com/roach88/fieldreg/internal/ir"
)

// MaintenanceLog owns maintenance records and their id counter.
//
// Records are validated against the equipment store when added and never
// again afterwards.
type MaintenanceLog struct {
	last      int64
	records   map[int64]ir.MaintenanceRecord
	equipment *EquipmentStore
}

// NewMaintenanceLog creates an empty log validating against equipment.
func NewMaintenanceLog(equipment *EquipmentStore) *MaintenanceLog {
	return &MaintenanceLog{
		records:   make(map[int64]ir.MaintenanceRecord),
		equipment: equipment,
	}
}

// Add stores a maintenance record and returns its id. It fails with 404
// when the equipment does not exist, leaving the counter untouched. Anyone
// may report maintenance.
func (m *MaintenanceLog) Add(in ir.MaintenanceInput, performedBy ir.Principal) (int64, error) {
	if !m.equipment.Exists(in.EquipmentID) {
		return 0, notFound("addMaintenance", EntityEquipment, in.EquipmentID)
	}
	m.last++
	m.records[m.last] = ir.MaintenanceRecord{
		ID:               m.last,
		MaintenanceInput: in,
		PerformedBy:      performedBy,
	}
	return m.last, nil
}

// Get returns a copy of the record with the given id.
func (m *MaintenanceLog) Get(id int64) (ir.MaintenanceRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return ir.MaintenanceRecord{}, notFound("getMaintenance", EntityMaintenance, id)
	}
	return rec, nil
}

// For returns the records of equipmentID ordered by id.
func (m *MaintenanceLog) For(equipmentID int64) []ir.MaintenanceRecord {
	out := []ir.MaintenanceRecord{}
	for id := int64(1); id <= m.last; id++ {
		if rec, ok := m.records[id]; ok && rec.EquipmentID == equipmentID {
			out = append(out, rec)
		}
	}
	return out
}

// Len returns the number of records.
func (m *MaintenanceLog) Len() int {
	return len(m.records)
}
