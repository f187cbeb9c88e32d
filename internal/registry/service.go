package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/fieldreg/internal/identity"
	"github.com/roach88/fieldreg/internal/ir"
)

// Service is the public operation surface of the registry.
//
// Every operation holds the service mutex for its whole duration. Mutating
// operations resolve the caller and height before touching any store; a
// resolver failure is returned wrapped and leaves state unchanged.
type Service struct {
	mu          sync.Mutex
	resolver    identity.Resolver
	equipment   *EquipmentStore
	history     *HistoryLog
	maintenance *MaintenanceLog
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates an empty registry resolving identities through r.
func NewService(r identity.Resolver, opts ...Option) *Service {
	eq := NewEquipmentStore()
	s := &Service{
		resolver:    r,
		equipment:   eq,
		history:     NewHistoryLog(),
		maintenance: NewMaintenanceLog(eq),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) resolve(ctx context.Context, op string) (identity.Identity, error) {
	id, err := s.resolver.Resolve(ctx)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%s: resolve caller: %w", op, err)
	}
	return id, nil
}

func (s *Service) logOutcome(op string, id identity.Identity, target int64, err error) {
	if err != nil {
		s.logger.Debug("registry operation rejected",
			"op", op, "caller", id.Caller, "id", target, "code", int(CodeOf(err)))
		return
	}
	s.logger.Debug("registry operation", "op", op, "caller", id.Caller, "id", target, "height", id.Height)
}

// Register creates equipment owned by the caller and returns its id.
func (s *Service) Register(ctx context.Context, attrs ir.EquipmentAttributes) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	who, err := s.resolve(ctx, "register")
	if err != nil {
		return 0, err
	}
	id := s.equipment.Register(attrs, who.Caller, who.Height)
	s.logOutcome("register", who, id, nil)
	return id, nil
}

// Get returns the equipment with the given id.
func (s *Service) Get(id int64) (ir.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.equipment.Get(id)
}

// SetStatus replaces the status of equipment owned by the caller.
func (s *Service) SetStatus(ctx context.Context, id int64, status ir.Status) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	who, err := s.resolve(ctx, "setStatus")
	if err != nil {
		return 0, err
	}
	err = s.equipment.SetStatus(id, status, who.Caller)
	s.logOutcome("setStatus", who, id, err)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SetLocation replaces the location of equipment owned by the caller.
func (s *Service) SetLocation(ctx context.Context, id int64, loc ir.Location) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	who, err := s.resolve(ctx, "setLocation")
	if err != nil {
		return 0, err
	}
	err = s.equipment.SetLocation(id, loc, who.Caller)
	s.logOutcome("setLocation", who, id, err)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SetNetwork replaces the IP address and firmware of equipment owned by the
// caller.
func (s *Service) SetNetwork(ctx context.Context, id int64, net ir.Network) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	who, err := s.resolve(ctx, "setNetwork")
	if err != nil {
		return 0, err
	}
	err = s.equipment.SetNetwork(id, net, who.Caller)
	s.logOutcome("setNetwork", who, id, err)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// TransferOwnership hands equipment owned by the caller to newOwner. The
// history entry and the owner change happen together or not at all.
func (s *Service) TransferOwnership(ctx context.Context, id int64, newOwner ir.Principal, reason string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	who, err := s.resolve(ctx, "transferOwnership")
	if err != nil {
		return 0, err
	}
	if err := s.equipment.checkTransfer(id, who.Caller); err != nil {
		s.logOutcome("transferOwnership", who, id, err)
		return 0, err
	}
	key := s.history.Append(id, who.Caller, newOwner, who.Height, reason)
	s.equipment.setOwner(id, newOwner)
	s.logger.Debug("ownership transferred",
		"id", id, "key", key.String(), "from", who.Caller, "to", newOwner)
	return id, nil
}

// AddMaintenance records a maintenance event performed by the caller.
// It is not owner-gated.
func (s *Service) AddMaintenance(ctx context.Context, in ir.MaintenanceInput) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	who, err := s.resolve(ctx, "addMaintenance")
	if err != nil {
		return 0, err
	}
	id, err := s.maintenance.Add(in, who.Caller)
	s.logOutcome("addMaintenance", who, in.EquipmentID, err)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetMaintenance returns the maintenance record with the given id.
func (s *Service) GetMaintenance(id int64) (ir.MaintenanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maintenance.Get(id)
}

// OwnershipHistory returns the transfers of equipment id, oldest first.
func (s *Service) OwnershipHistory(id int64) ([]ir.TransferRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.equipment.Exists(id) {
		return nil, notFound("ownershipHistory", EntityEquipment, id)
	}
	return s.history.For(id), nil
}

// TransferRecord returns one entry of the ownership history.
func (s *Service) TransferRecord(key ir.TransferKey) (ir.TransferRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Get(key)
}

// MaintenanceHistory returns the maintenance records of equipment id,
// ordered by record id.
func (s *Service) MaintenanceHistory(id int64) ([]ir.MaintenanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.equipment.Exists(id) {
		return nil, notFound("maintenanceHistory", EntityEquipment, id)
	}
	return s.maintenance.For(id), nil
}

// ListFilter selects equipment in ListEquipment. Zero fields match
// everything.
type ListFilter struct {
	Owner  ir.Principal
	Status ir.Status
}

func (f ListFilter) match(eq ir.Equipment) bool {
	if f.Owner != "" && eq.Owner != f.Owner {
		return false
	}
	if f.Status != "" && eq.Status != f.Status {
		return false
	}
	return true
}

// ListEquipment returns the equipment matching f, ordered by id.
func (s *Service) ListEquipment(f ListFilter) []ir.Equipment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.equipment.List(f.match)
}

// Stats are record counts across the registry.
type Stats struct {
	Equipment          int `json:"equipment"`
	Transfers          int `json:"transfers"`
	MaintenanceRecords int `json:"maintenance_records"`
}

// Stats returns current record counts.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Equipment:          s.equipment.Len(),
		Transfers:          s.history.Len(),
		MaintenanceRecords: s.maintenance.Len(),
	}
}
