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

package database

import (
	"context"

	"github.com/agrion/agrion/model"
	"github.com/shopspring/decimal"
)

// IDataSource is the durable store. Store methods called directly run in their own implicit
// transaction; RunInTx groups several of them into one atomic unit.
type IDataSource interface {
	Store
	RunInTx(ctx context.Context, fn func(tx Store) error) error
}

// Store groups every operation available both inside and outside a transaction.
type Store interface {
	credit
	waste
	outbreak
	irrigation
	logistics
	market
	farm
	audit
}

type credit interface {
	// EnsureCredit creates a zero ledger for farmID if none exists.
	EnsureCredit(ctx context.Context, farmID string) error
	// IncrementCredit adds amount to both total_earned and available_balance in one statement.
	IncrementCredit(ctx context.Context, farmID string, amount decimal.Decimal) (*model.CircularCredit, error)
	// DebitCredit decrements available_balance only when it covers amount. It reports whether a row changed.
	DebitCredit(ctx context.Context, farmID string, amount decimal.Decimal) (bool, error)
	GetCredit(ctx context.Context, farmID string) (*model.CircularCredit, error)
	// ApplySustainabilityBonus bumps the farm's biodiversity index, treating an unset index as baseline
	// and clamping at ceiling. It reports false when the farm has no score row.
	ApplySustainabilityBonus(ctx context.Context, farmID string, increment, baseline, ceiling float64) (bool, error)
}

type waste interface {
	CreateWaste(ctx context.Context, w model.WasteInventory) (model.WasteInventory, error)
	// GetWasteForUpdate row-locks the record for the rest of the transaction.
	GetWasteForUpdate(ctx context.Context, wasteID string) (*model.WasteInventory, error)
	// MarkWasteProcessed flips is_processed false -> true. It reports false when the row was already processed.
	MarkWasteProcessed(ctx context.Context, wasteID string) (bool, error)
	GetUnprocessedWaste(ctx context.Context, limit int) ([]model.WasteInventory, error)
	GetPendingWasteKg(ctx context.Context, farmID string) (float64, error)
	RecordBioEnergyOutput(ctx context.Context, output model.BioEnergyOutput) (model.BioEnergyOutput, error)
	GetRecentBioEnergyOutputs(ctx context.Context, farmID string, limit int) ([]model.BioEnergyOutput, error)
}

type outbreak interface {
	CreateOutbreakZone(ctx context.Context, zone model.OutbreakZone) (model.OutbreakZone, error)
	// GetOutbreakZoneForUpdate row-locks the zone so concurrent analyses of it serialize.
	GetOutbreakZoneForUpdate(ctx context.Context, zoneID string) (*model.OutbreakZone, error)
	GetActiveOutbreakZones(ctx context.Context) ([]model.OutbreakZone, error)
	UpdateOutbreakZoneStatus(ctx context.Context, zoneID, status string) error
	RecordMigrationVector(ctx context.Context, vector model.MigrationVector) (model.MigrationVector, error)
	GetRecentMigrationVectors(ctx context.Context, limit int) ([]model.MigrationVector, error)
	RecordContainment(ctx context.Context, containment model.BiosecurityContainment) (model.BiosecurityContainment, error)
	GetContainmentForUpdate(ctx context.Context, containmentID string) (*model.BiosecurityContainment, error)
	// DeactivateContainment reports false when the containment was already inactive.
	DeactivateContainment(ctx context.Context, containmentID string) (bool, error)
	GetActiveContainments(ctx context.Context) ([]model.BiosecurityContainment, error)
	CountActiveContainments(ctx context.Context, zoneID string) (int, error)
}

type irrigation interface {
	FindIrrigationZonesByNameContaining(ctx context.Context, term string) ([]model.IrrigationZone, error)
	// ApplyIrrigationLockdown sets all four containment fields on every zone in one statement.
	ApplyIrrigationLockdown(ctx context.Context, zoneIDs []string, concentrationPpm float64) (int64, error)
	ReleaseIrrigationLockdown(ctx context.Context, zoneIDs []string) (int64, error)
}

type logistics interface {
	// LockBatchesAtLocation quarantines every batch at location regardless of its prior state.
	LockBatchesAtLocation(ctx context.Context, location, quarantineStatus, status string) (int64, error)
	// TraceLockBatches quarantines batches with any custody record at one of locations.
	// Batches that already carry a quarantine status are left untouched.
	TraceLockBatches(ctx context.Context, locations []string, quarantineStatus, status string) (int64, error)
	ReleaseBatchesAtLocation(ctx context.Context, location, quarantineStatus, status string) (int64, error)
	ReleaseTracedBatches(ctx context.Context, location string, heldBy []string, quarantineStatus, status string) (int64, error)
}

type market interface {
	CreateForwardContract(ctx context.Context, contract model.ForwardContract) (model.ForwardContract, error)
	GetForwardContract(ctx context.Context, contractID string) (*model.ForwardContract, error)
	// MatchForwardContract moves a PENDING contract to MATCHED. It reports false when the contract was not PENDING.
	MatchForwardContract(ctx context.Context, contractID, buyerID string) (bool, error)
	GetForwardContractsByFarm(ctx context.Context, farmID string) ([]model.ForwardContract, error)
	RecordHedgingLog(ctx context.Context, entry model.PriceHedgingLog) (model.PriceHedgingLog, error)
	GetRecentHedgingLogs(ctx context.Context, farmID string, limit int) ([]model.PriceHedgingLog, error)
}

type farm interface {
	GetFarm(ctx context.Context, farmID string) (*model.Farm, error)
	GetFarmsAboveReadiness(ctx context.Context, threshold float64) ([]model.Farm, error)
}

type audit interface {
	RecordAuditEvent(ctx context.Context, event model.AuditEvent) (model.AuditEvent, error)
}
