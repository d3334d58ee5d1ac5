package model

import "time"

const (
	ContractStatusPending = "PENDING"
	ContractStatusMatched = "MATCHED"
	ContractStatusSettled = "SETTLED"
	ContractStatusExpired = "EXPIRED"
)

// Farm readiness fields are owned by the external maturity estimator.
type Farm struct {
	FarmID                string     `json:"farm_id"`
	Name                  string     `json:"name"`
	Location              string     `json:"location"`
	HarvestReadinessIndex float64    `json:"harvest_readiness_index"`
	PredictedYieldKg      *float64   `json:"predicted_yield_kg,omitempty"`
	PredictedHarvestDate  *time.Time `json:"predicted_harvest_date,omitempty"`
}

// ForwardContract moves PENDING -> MATCHED exactly once; the first matcher wins.
type ForwardContract struct {
	ContractID           string    `json:"contract_id"`
	FarmID               string    `json:"farm_id"`
	BuyerID              *string   `json:"buyer_id,omitempty"`
	CropType             string    `json:"crop_type"`
	QuantityKg           float64   `json:"quantity_kg"`
	LockedPricePerKg     float64   `json:"locked_price_per_kg"`
	DeliveryDeadline     time.Time `json:"delivery_deadline"`
	Status               string    `json:"status"`
	HedgeRatio           float64   `json:"hedge_ratio"`
	VolatilityAtCreation float64   `json:"volatility_at_creation"`
	Version              int64     `json:"version"`
	CreatedAt            time.Time `json:"created_at"`
}

type PriceHedgingLog struct {
	LogID               string    `json:"log_id"`
	FarmID              string    `json:"farm_id"`
	ContractID          string    `json:"contract_id"`
	ActionTaken         string    `json:"action_taken"`
	Reasoning           string    `json:"reasoning"`
	MarketPriceSnapshot float64   `json:"market_price_snapshot"`
	HedgeRatioApplied   float64   `json:"hedge_ratio_applied"`
	CreatedAt           time.Time `json:"created_at"`
}

type FuturesDashboard struct {
	Farm       Farm              `json:"farm"`
	Contracts  []ForwardContract `json:"contracts"`
	HedgingLog []PriceHedgingLog `json:"hedging_log"`
}
