package registry

import (
	"github.com/roach88/fieldreg/internal/ir"
)

// HistoryLog is the append-only ownership transfer history. Keys are
// per-equipment sequences starting at 1.
type HistoryLog struct {
	records map[ir.TransferKey]ir.TransferRecord
	seqs    map[int64]uint64
}

// NewHistoryLog creates an empty log.
func NewHistoryLog() *HistoryLog {
	return &HistoryLog{
		records: make(map[ir.TransferKey]ir.TransferRecord),
		seqs:    make(map[int64]uint64),
	}
}

// Append records a transfer of equipmentID and returns its key.
func (h *HistoryLog) Append(equipmentID int64, previous, next ir.Principal, height int64, reason string) ir.TransferKey {
	h.seqs[equipmentID]++
	key := ir.TransferKey{EquipmentID: equipmentID, Seq: h.seqs[equipmentID]}
	h.records[key] = ir.TransferRecord{
		Key:            key,
		PreviousOwner:  previous,
		NewOwner:       next,
		TransferDate:   height,
		TransferReason: reason,
	}
	return key
}

// Get returns the transfer record stored under key.
func (h *HistoryLog) Get(key ir.TransferKey) (ir.TransferRecord, error) {
	rec, ok := h.records[key]
	if !ok {
		return ir.TransferRecord{}, notFound("transferRecord", EntityTransfer, key)
	}
	return rec, nil
}

// For returns the transfers of equipmentID in the order they happened.
func (h *HistoryLog) For(equipmentID int64) []ir.TransferRecord {
	n := h.seqs[equipmentID]
	out := make([]ir.TransferRecord, 0, n)
	for seq := uint64(1); seq <= n; seq++ {
		out = append(out, h.records[ir.TransferKey{EquipmentID: equipmentID, Seq: seq}])
	}
	return out
}

// Len returns the total number of transfers recorded.
func (h *HistoryLog) Len() int {
	return len(h.records)
}
