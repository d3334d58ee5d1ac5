package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Waste types with a configured yield rate. Any other type uses the default rate.
const (
	WasteTypeBioMass = "BIO_MASS"
	WasteTypeManure  = "MANURE"
	WasteTypePlastic = "PLASTIC"
)

// WasteInventory is consumed exactly once; IsProcessed never flips back.
type WasteInventory struct {
	WasteID     string    `json:"waste_id"`
	FarmID      string    `json:"farm_id"`
	WasteType   string    `json:"waste_type"`
	QuantityKg  float64   `json:"quantity_kg"`
	IsProcessed bool      `json:"is_processed"`
	CreatedAt   time.Time `json:"created_at"`
}

type BioEnergyOutput struct {
	OutputID        string    `json:"output_id"`
	FarmID          string    `json:"farm_id"`
	WasteSourceID   string    `json:"waste_source_id"`
	EnergyKwh       float64   `json:"energy_kwh"`
	EfficiencyScore float64   `json:"efficiency_score"`
	CreatedAt       time.Time `json:"created_at"`
}

// CircularCredit is the per-farm credit ledger. TotalEarned never decreases and
// AvailableBalance never goes negative.
type CircularCredit struct {
	FarmID           string          `json:"farm_id"`
	TotalEarned      decimal.Decimal `json:"total_earned"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	Version          int64           `json:"version"`
	LastUpdated      time.Time       `json:"last_updated"`
}

type SustainabilityScore struct {
	FarmID            string   `json:"farm_id"`
	BiodiversityIndex *float64 `json:"biodiversity_index,omitempty"`
}

type CircularDashboard struct {
	Credit           CircularCredit    `json:"credit"`
	PendingWasteKg   float64           `json:"pending_waste_kg"`
	RecentProduction []BioEnergyOutput `json:"recent_production"`
}
