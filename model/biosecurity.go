package model

import "time"

const (
	OutbreakStatusActive    = "active"
	OutbreakStatusContained = "contained"
)

// BlockadeType values.
const (
	BlockadeBatchLockFertigationOn = "BATCH_LOCK_FERTIGATION_ON"
)

// QuarantineLevel values.
const (
	QuarantineLevelCritical = "CRITICAL"
	QuarantineLevelHigh     = "HIGH"
	QuarantineLevelModerate = "MODERATE"
)

// Supply batch quarantine and status values written by the containment engine.
const (
	QuarantineUnset         = ""
	QuarantineRedZoneLocked = "RED_ZONE_LOCKED"
	QuarantineTraceLock     = "TRACE_LOCK"

	BatchStatusRejected     = "REJECTED"
	BatchStatusQualityCheck = "QUALITY_CHECK"
)

// OutbreakZone is a reported disease outbreak. A contained zone is never re-analyzed.
type OutbreakZone struct {
	ZoneID              string    `json:"zone_id"`
	Status              string    `json:"status"`
	DiseaseName         string    `json:"disease_name"`
	ZoneKey             string    `json:"zone_key"`
	WindVectorDeg       *float64  `json:"wind_vector_deg,omitempty"`
	PropagationVelocity *float64  `json:"propagation_velocity,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// MigrationVector is an append-only spread prediction for an outbreak zone.
type MigrationVector struct {
	VectorID         string    `json:"vector_id"`
	OutbreakZoneID   string    `json:"outbreak_zone_id"`
	DirectionDeg     float64   `json:"direction_deg"`
	SpeedKmh         float64   `json:"speed_kmh"`
	ProbabilityScore float64   `json:"probability_score"`
	CreatedAt        time.Time `json:"created_at"`
}

type BiosecurityContainment struct {
	ContainmentID   string     `json:"containment_id"`
	OutbreakZoneID  string     `json:"outbreak_zone_id"`
	BlockadeType    string     `json:"blockade_type"`
	QuarantineLevel string     `json:"quarantine_level"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	DeactivatedAt   *time.Time `json:"deactivated_at,omitempty"`
}

// IrrigationZone carries the four containment fields, which are always written together.
type IrrigationZone struct {
	ZoneID                string  `json:"zone_id"`
	Name                  string  `json:"name"`
	FarmID                string  `json:"farm_id"`
	PestControlMode       bool    `json:"pest_control_mode"`
	FertigationEnabled    bool    `json:"fertigation_enabled"`
	ChemicalConcentration float64 `json:"chemical_concentration"`
	BiosecurityLockdown   bool    `json:"biosecurity_lockdown"`
}

type SupplyBatch struct {
	BatchID          string `json:"batch_id"`
	FarmLocation     string `json:"farm_location"`
	Status           string `json:"status"`
	QuarantineStatus string `json:"quarantine_status"`
}

type CustodyLog struct {
	LogID      string    `json:"log_id"`
	BatchID    string    `json:"batch_id"`
	Location   string    `json:"location"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ThreatMonitor summarizes the active outbreak picture.
type ThreatMonitor struct {
	ActiveOutbreaks  []OutbreakZone    `json:"active_outbreaks"`
	PredictedVectors []MigrationVector `json:"predicted_vectors"`
}
