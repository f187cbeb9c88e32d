// Package registry implements the field equipment registry.
//
// Three stores hold the state:
//   - EquipmentStore maps equipment ids to Equipment and allocates ids
//   - HistoryLog is the append-only ownership transfer history
//   - MaintenanceLog maps maintenance ids to MaintenanceRecord
//
// Service is the only public mutation surface. It resolves the caller and
// block height through an identity.Resolver, enforces ownership and runs
// every operation under one mutex, so each operation is atomic with respect
// to the others. The stores themselves are not safe for concurrent use.
//
// Failed preconditions return *Error with code 404 or 403 and leave all
// state unchanged. Readers always receive copies.
package registry
