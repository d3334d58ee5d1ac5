/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package mocks

import (
	"context"

	"github.com/agrion/agrion/database"
	"github.com/agrion/agrion/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface. RunInTx hands the mock
// itself to fn, so expectations set on store methods apply inside transactions too. Pointer
// results must be registered with a typed nil when the call is expected to fail.
type MockDataSource struct {
	mock.Mock
}

var _ database.IDataSource = (*MockDataSource)(nil)

func (m *MockDataSource) RunInTx(ctx context.Context, fn func(tx database.Store) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}

// Credit methods

func (m *MockDataSource) EnsureCredit(ctx context.Context, farmID string) error {
	args := m.Called(ctx, farmID)
	return args.Error(0)
}

func (m *MockDataSource) IncrementCredit(ctx context.Context, farmID string, amount decimal.Decimal) (*model.CircularCredit, error) {
	args := m.Called(ctx, farmID, amount)
	return args.Get(0).(*model.CircularCredit), args.Error(1)
}

func (m *MockDataSource) DebitCredit(ctx context.Context, farmID string, amount decimal.Decimal) (bool, error) {
	args := m.Called(ctx, farmID, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) GetCredit(ctx context.Context, farmID string) (*model.CircularCredit, error) {
	args := m.Called(ctx, farmID)
	return args.Get(0).(*model.CircularCredit), args.Error(1)
}

func (m *MockDataSource) ApplySustainabilityBonus(ctx context.Context, farmID string, increment, baseline, ceiling float64) (bool, error) {
	args := m.Called(ctx, farmID, increment, baseline, ceiling)
	return args.Bool(0), args.Error(1)
}

// Waste methods

func (m *MockDataSource) CreateWaste(ctx context.Context, w model.WasteInventory) (model.WasteInventory, error) {
	args := m.Called(ctx, w)
	return args.Get(0).(model.WasteInventory), args.Error(1)
}

func (m *MockDataSource) GetWasteForUpdate(ctx context.Context, wasteID string) (*model.WasteInventory, error) {
	args := m.Called(ctx, wasteID)
	return args.Get(0).(*model.WasteInventory), args.Error(1)
}

func (m *MockDataSource) MarkWasteProcessed(ctx context.Context, wasteID string) (bool, error) {
	args := m.Called(ctx, wasteID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) GetUnprocessedWaste(ctx context.Context, limit int) ([]model.WasteInventory, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]model.WasteInventory), args.Error(1)
}

func (m *MockDataSource) GetPendingWasteKg(ctx context.Context, farmID string) (float64, error) {
	args := m.Called(ctx, farmID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockDataSource) RecordBioEnergyOutput(ctx context.Context, output model.BioEnergyOutput) (model.BioEnergyOutput, error) {
	args := m.Called(ctx, output)
	return args.Get(0).(model.BioEnergyOutput), args.Error(1)
}

func (m *MockDataSource) GetRecentBioEnergyOutputs(ctx context.Context, farmID string, limit int) ([]model.BioEnergyOutput, error) {
	args := m.Called(ctx, farmID, limit)
	return args.Get(0).([]model.BioEnergyOutput), args.Error(1)
}

// Outbreak methods

func (m *MockDataSource) CreateOutbreakZone(ctx context.Context, zone model.OutbreakZone) (model.OutbreakZone, error) {
	args := m.Called(ctx, zone)
	return args.Get(0).(model.OutbreakZone), args.Error(1)
}

func (m *MockDataSource) GetOutbreakZoneForUpdate(ctx context.Context, zoneID string) (*model.OutbreakZone, error) {
	args := m.Called(ctx, zoneID)
	return args.Get(0).(*model.OutbreakZone), args.Error(1)
}

func (m *MockDataSource) GetActiveOutbreakZones(ctx context.Context) ([]model.OutbreakZone, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.OutbreakZone), args.Error(1)
}

func (m *MockDataSource) UpdateOutbreakZoneStatus(ctx context.Context, zoneID, status string) error {
	args := m.Called(ctx, zoneID, status)
	return args.Error(0)
}

func (m *MockDataSource) RecordMigrationVector(ctx context.Context, vector model.MigrationVector) (model.MigrationVector, error) {
	args := m.Called(ctx, vector)
	return args.Get(0).(model.MigrationVector), args.Error(1)
}

func (m *MockDataSource) GetRecentMigrationVectors(ctx context.Context, limit int) ([]model.MigrationVector, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]model.MigrationVector), args.Error(1)
}

func (m *MockDataSource) RecordContainment(ctx context.Context, c model.BiosecurityContainment) (model.BiosecurityContainment, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(model.BiosecurityContainment), args.Error(1)
}

func (m *MockDataSource) GetContainmentForUpdate(ctx context.Context, containmentID string) (*model.BiosecurityContainment, error) {
	args := m.Called(ctx, containmentID)
	return args.Get(0).(*model.BiosecurityContainment), args.Error(1)
}

func (m *MockDataSource) DeactivateContainment(ctx context.Context, containmentID string) (bool, error) {
	args := m.Called(ctx, containmentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) GetActiveContainments(ctx context.Context) ([]model.BiosecurityContainment, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.BiosecurityContainment), args.Error(1)
}

func (m *MockDataSource) CountActiveContainments(ctx context.Context, zoneID string) (int, error) {
	args := m.Called(ctx, zoneID)
	return args.Int(0), args.Error(1)
}

// Irrigation methods

func (m *MockDataSource) FindIrrigationZonesByNameContaining(ctx context.Context, term string) ([]model.IrrigationZone, error) {
	args := m.Called(ctx, term)
	return args.Get(0).([]model.IrrigationZone), args.Error(1)
}

func (m *MockDataSource) ApplyIrrigationLockdown(ctx context.Context, zoneIDs []string, concentrationPpm float64) (int64, error) {
	args := m.Called(ctx, zoneIDs, concentrationPpm)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) ReleaseIrrigationLockdown(ctx context.Context, zoneIDs []string) (int64, error) {
	args := m.Called(ctx, zoneIDs)
	return args.Get(0).(int64), args.Error(1)
}

// Logistics methods

func (m *MockDataSource) LockBatchesAtLocation(ctx context.Context, location, quarantineStatus, status string) (int64, error) {
	args := m.Called(ctx, location, quarantineStatus, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) TraceLockBatches(ctx context.Context, locations []string, quarantineStatus, status string) (int64, error) {
	args := m.Called(ctx, locations, quarantineStatus, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) ReleaseBatchesAtLocation(ctx context.Context, location, quarantineStatus, status string) (int64, error) {
	args := m.Called(ctx, location, quarantineStatus, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) ReleaseTracedBatches(ctx context.Context, location string, heldBy []string, quarantineStatus, status string) (int64, error) {
	args := m.Called(ctx, location, heldBy, quarantineStatus, status)
	return args.Get(0).(int64), args.Error(1)
}

// Market methods

func (m *MockDataSource) CreateForwardContract(ctx context.Context, contract model.ForwardContract) (model.ForwardContract, error) {
	args := m.Called(ctx, contract)
	return args.Get(0).(model.ForwardContract), args.Error(1)
}

func (m *MockDataSource) GetForwardContract(ctx context.Context, contractID string) (*model.ForwardContract, error) {
	args := m.Called(ctx, contractID)
	return args.Get(0).(*model.ForwardContract), args.Error(1)
}

func (m *MockDataSource) MatchForwardContract(ctx context.Context, contractID, buyerID string) (bool, error) {
	args := m.Called(ctx, contractID, buyerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) GetForwardContractsByFarm(ctx context.Context, farmID string) ([]model.ForwardContract, error) {
	args := m.Called(ctx, farmID)
	return args.Get(0).([]model.ForwardContract), args.Error(1)
}

func (m *MockDataSource) RecordHedgingLog(ctx context.Context, entry model.PriceHedgingLog) (model.PriceHedgingLog, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(model.PriceHedgingLog), args.Error(1)
}

func (m *MockDataSource) GetRecentHedgingLogs(ctx context.Context, farmID string, limit int) ([]model.PriceHedgingLog, error) {
	args := m.Called(ctx, farmID, limit)
	return args.Get(0).([]model.PriceHedgingLog), args.Error(1)
}

// Farm methods

func (m *MockDataSource) GetFarm(ctx context.Context, farmID string) (*model.Farm, error) {
	args := m.Called(ctx, farmID)
	return args.Get(0).(*model.Farm), args.Error(1)
}

func (m *MockDataSource) GetFarmsAboveReadiness(ctx context.Context, threshold float64) ([]model.Farm, error) {
	args := m.Called(ctx, threshold)
	return args.Get(0).([]model.Farm), args.Error(1)
}

// Audit methods

func (m *MockDataSource) RecordAuditEvent(ctx context.Context, event model.AuditEvent) (model.AuditEvent, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(model.AuditEvent), args.Error(1)
}
