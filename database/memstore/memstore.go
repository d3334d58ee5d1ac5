// Package memstore is an in-memory transactional implementation of database.IDataSource.
// Transactions are serialized and roll back by restoring a snapshot of the state taken at begin.
package memstore

import (
	"context"
	"sync"

	"github.com/agrion/agrion/database"
	"github.com/agrion/agrion/model"
	"github.com/shopspring/decimal"
)

type state struct {
	credits      []model.CircularCredit
	scores       []model.SustainabilityScore
	waste        []model.WasteInventory
	outputs      []model.BioEnergyOutput
	zones        []model.OutbreakZone
	vectors      []model.MigrationVector
	containments []model.BiosecurityContainment
	irrigation   []model.IrrigationZone
	batches      []model.SupplyBatch
	custody      []model.CustodyLog
	farms        []model.Farm
	contracts    []model.ForwardContract
	hedgingLogs  []model.PriceHedgingLog
	audit        []model.AuditEvent
}

func (s *state) clone() *state {
	return &state{
		credits:      append([]model.CircularCredit(nil), s.credits...),
		scores:       append([]model.SustainabilityScore(nil), s.scores...),
		waste:        append([]model.WasteInventory(nil), s.waste...),
		outputs:      append([]model.BioEnergyOutput(nil), s.outputs...),
		zones:        append([]model.OutbreakZone(nil), s.zones...),
		vectors:      append([]model.MigrationVector(nil), s.vectors...),
		containments: append([]model.BiosecurityContainment(nil), s.containments...),
		irrigation:   append([]model.IrrigationZone(nil), s.irrigation...),
		batches:      append([]model.SupplyBatch(nil), s.batches...),
		custody:      append([]model.CustodyLog(nil), s.custody...),
		farms:        append([]model.Farm(nil), s.farms...),
		contracts:    append([]model.ForwardContract(nil), s.contracts...),
		hedgingLogs:  append([]model.PriceHedgingLog(nil), s.hedgingLogs...),
		audit:        append([]model.AuditEvent(nil), s.audit...),
	}
}

// MemStore is safe for concurrent use. Direct Store calls are individually atomic.
type MemStore struct {
	mu     sync.Mutex
	st     *state
	faults map[string]error
}

var _ database.IDataSource = (*MemStore)(nil)

func New() *MemStore {
	return &MemStore{st: &state{}, faults: map[string]error{}}
}

// FailOn makes every later call of the named Store method return err.
func (m *MemStore) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[method] = err
}

func (m *MemStore) ClearFaults() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = map[string]error{}
}

func (m *MemStore) view() *view {
	return &view{st: m.st, faults: m.faults}
}

func (m *MemStore) RunInTx(ctx context.Context, fn func(tx database.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(m.view()); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

// locked runs fn against the live state under the store mutex.
func locked[T any](m *MemStore, fn func(v *view) (T, error)) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.st.clone()
	result, err := fn(m.view())
	if err != nil {
		m.st = snapshot
	}
	return result, err
}

func (m *MemStore) EnsureCredit(ctx context.Context, farmID string) error {
	_, err := locked(m, func(v *view) (struct{}, error) { return struct{}{}, v.EnsureCredit(ctx, farmID) })
	return err
}

func (m *MemStore) IncrementCredit(ctx context.Context, farmID string, amount decimal.Decimal) (*model.CircularCredit, error) {
	return locked(m, func(v *view) (*model.CircularCredit, error) { return v.IncrementCredit(ctx, farmID, amount) })
}

func (m *MemStore) DebitCredit(ctx context.Context, farmID string, amount decimal.Decimal) (bool, error) {
	return locked(m, func(v *view) (bool, error) { return v.DebitCredit(ctx, farmID, amount) })
}

func (m *MemStore) GetCredit(ctx context.Context, farmID string) (*model.CircularCredit, error) {
	return locked(m, func(v *view) (*model.CircularCredit, error) { return v.GetCredit(ctx, farmID) })
}

func (m *MemStore) ApplySustainabilityBonus(ctx context.Context, farmID string, increment, baseline, ceiling float64) (bool, error) {
	return locked(m, func(v *view) (bool, error) {
		return v.ApplySustainabilityBonus(ctx, farmID, increment, baseline, ceiling)
	})
}

func (m *MemStore) CreateWaste(ctx context.Context, w model.WasteInventory) (model.WasteInventory, error) {
	return locked(m, func(v *view) (model.WasteInventory, error) { return v.CreateWaste(ctx, w) })
}

func (m *MemStore) GetWasteForUpdate(ctx context.Context, wasteID string) (*model.WasteInventory, error) {
	return locked(m, func(v *view) (*model.WasteInventory, error) { return v.GetWasteForUpdate(ctx, wasteID) })
}

func (m *MemStore) MarkWasteProcessed(ctx context.Context, wasteID string) (bool, error) {
	return locked(m, func(v *view) (bool, error) { return v.MarkWasteProcessed(ctx, wasteID) })
}

func (m *MemStore) GetUnprocessedWaste(ctx context.Context, limit int) ([]model.WasteInventory, error) {
	return locked(m, func(v *view) ([]model.WasteInventory, error) { return v.GetUnprocessedWaste(ctx, limit) })
}

func (m *MemStore) GetPendingWasteKg(ctx context.Context, farmID string) (float64, error) {
	return locked(m, func(v *view) (float64, error) { return v.GetPendingWasteKg(ctx, farmID) })
}

func (m *MemStore) RecordBioEnergyOutput(ctx context.Context, output model.BioEnergyOutput) (model.BioEnergyOutput, error) {
	return locked(m, func(v *view) (model.BioEnergyOutput, error) { return v.RecordBioEnergyOutput(ctx, output) })
}

func (m *MemStore) GetRecentBioEnergyOutputs(ctx context.Context, farmID string, limit int) ([]model.BioEnergyOutput, error) {
	return locked(m, func(v *view) ([]model.BioEnergyOutput, error) { return v.GetRecentBioEnergyOutputs(ctx, farmID, limit) })
}

func (m *MemStore) CreateOutbreakZone(ctx context.Context, zone model.OutbreakZone) (model.OutbreakZone, error) {
	return locked(m, func(v *view) (model.OutbreakZone, error) { return v.CreateOutbreakZone(ctx, zone) })
}

func (m *MemStore) GetOutbreakZoneForUpdate(ctx context.Context, zoneID string) (*model.OutbreakZone, error) {
	return locked(m, func(v *view) (*model.OutbreakZone, error) { return v.GetOutbreakZoneForUpdate(ctx, zoneID) })
}

func (m *MemStore) GetActiveOutbreakZones(ctx context.Context) ([]model.OutbreakZone, error) {
	return locked(m, func(v *view) ([]model.OutbreakZone, error) { return v.GetActiveOutbreakZones(ctx) })
}

func (m *MemStore) UpdateOutbreakZoneStatus(ctx context.Context, zoneID, status string) error {
	_, err := locked(m, func(v *view) (struct{}, error) {
		return struct{}{}, v.UpdateOutbreakZoneStatus(ctx, zoneID, status)
	})
	return err
}

func (m *MemStore) RecordMigrationVector(ctx context.Context, vector model.MigrationVector) (model.MigrationVector, error) {
	return locked(m, func(v *view) (model.MigrationVector, error) { return v.RecordMigrationVector(ctx, vector) })
}

func (m *MemStore) GetRecentMigrationVectors(ctx context.Context, limit int) ([]model.MigrationVector, error) {
	return locked(m, func(v *view) ([]model.MigrationVector, error) { return v.GetRecentMigrationVectors(ctx, limit) })
}

func (m *MemStore) RecordContainment(ctx context.Context, c model.BiosecurityContainment) (model.BiosecurityContainment, error) {
	return locked(m, func(v *view) (model.BiosecurityContainment, error) { return v.RecordContainment(ctx, c) })
}

func (m *MemStore) GetContainmentForUpdate(ctx context.Context, containmentID string) (*model.BiosecurityContainment, error) {
	return locked(m, func(v *view) (*model.BiosecurityContainment, error) {
		return v.GetContainmentForUpdate(ctx, containmentID)
	})
}

func (m *MemStore) DeactivateContainment(ctx context.Context, containmentID string) (bool, error) {
	return locked(m, func(v *view) (bool, error) { return v.DeactivateContainment(ctx, containmentID) })
}

func (m *MemStore) GetActiveContainments(ctx context.Context) ([]model.BiosecurityContainment, error) {
	return locked(m, func(v *view) ([]model.BiosecurityContainment, error) { return v.GetActiveContainments(ctx) })
}

func (m *MemStore) CountActiveContainments(ctx context.Context, zoneID string) (int, error) {
	return locked(m, func(v *view) (int, error) { return v.CountActiveContainments(ctx, zoneID) })
}

func (m *MemStore) FindIrrigationZonesByNameContaining(ctx context.Context, term string) ([]model.IrrigationZone, error) {
	return locked(m, func(v *view) ([]model.IrrigationZone, error) { return v.FindIrrigationZonesByNameContaining(ctx, term) })
}

func (m *MemStore) ApplyIrrigationLockdown(ctx context.Context, zoneIDs []string, concentrationPpm float64) (int64, error) {
	return locked(m, func(v *view) (int64, error) { return v.ApplyIrrigationLockdown(ctx, zoneIDs, concentrationPpm) })
}

func (m *MemStore) ReleaseIrrigationLockdown(ctx context.Context, zoneIDs []string) (int64, error) {
	return locked(m, func(v *view) (int64, error) { return v.ReleaseIrrigationLockdown(ctx, zoneIDs) })
}

func (m *MemStore) LockBatchesAtLocation(ctx context.Context, location, quarantineStatus, status string) (int64, error) {
	return locked(m, func(v *view) (int64, error) {
		return v.LockBatchesAtLocation(ctx, location, quarantineStatus, status)
	})
}

func (m *MemStore) TraceLockBatches(ctx context.Context, locations []string, quarantineStatus, status string) (int64, error) {
	return locked(m, func(v *view) (int64, error) {
		return v.TraceLockBatches(ctx, locations, quarantineStatus, status)
	})
}

func (m *MemStore) ReleaseBatchesAtLocation(ctx context.Context, location, quarantineStatus, status string) (int64, error) {
	return locked(m, func(v *view) (int64, error) {
		return v.ReleaseBatchesAtLocation(ctx, location, quarantineStatus, status)
	})
}

func (m *MemStore) ReleaseTracedBatches(ctx context.Context, location string, heldBy []string, quarantineStatus, status string) (int64, error) {
	return locked(m, func(v *view) (int64, error) {
		return v.ReleaseTracedBatches(ctx, location, heldBy, quarantineStatus, status)
	})
}

func (m *MemStore) CreateForwardContract(ctx context.Context, contract model.ForwardContract) (model.ForwardContract, error) {
	return locked(m, func(v *view) (model.ForwardContract, error) { return v.CreateForwardContract(ctx, contract) })
}

func (m *MemStore) GetForwardContract(ctx context.Context, contractID string) (*model.ForwardContract, error) {
	return locked(m, func(v *view) (*model.ForwardContract, error) { return v.GetForwardContract(ctx, contractID) })
}

func (m *MemStore) MatchForwardContract(ctx context.Context, contractID, buyerID string) (bool, error) {
	return locked(m, func(v *view) (bool, error) { return v.MatchForwardContract(ctx, contractID, buyerID) })
}

func (m *MemStore) GetForwardContractsByFarm(ctx context.Context, farmID string) ([]model.ForwardContract, error) {
	return locked(m, func(v *view) ([]model.ForwardContract, error) { return v.GetForwardContractsByFarm(ctx, farmID) })
}

func (m *MemStore) RecordHedgingLog(ctx context.Context, entry model.PriceHedgingLog) (model.PriceHedgingLog, error) {
	return locked(m, func(v *view) (model.PriceHedgingLog, error) { return v.RecordHedgingLog(ctx, entry) })
}

func (m *MemStore) GetRecentHedgingLogs(ctx context.Context, farmID string, limit int) ([]model.PriceHedgingLog, error) {
	return locked(m, func(v *view) ([]model.PriceHedgingLog, error) { return v.GetRecentHedgingLogs(ctx, farmID, limit) })
}

func (m *MemStore) GetFarm(ctx context.Context, farmID string) (*model.Farm, error) {
	return locked(m, func(v *view) (*model.Farm, error) { return v.GetFarm(ctx, farmID) })
}

func (m *MemStore) GetFarmsAboveReadiness(ctx context.Context, threshold float64) ([]model.Farm, error) {
	return locked(m, func(v *view) ([]model.Farm, error) { return v.GetFarmsAboveReadiness(ctx, threshold) })
}

func (m *MemStore) RecordAuditEvent(ctx context.Context, event model.AuditEvent) (model.AuditEvent, error) {
	return locked(m, func(v *view) (model.AuditEvent, error) { return v.RecordAuditEvent(ctx, event) })
}
