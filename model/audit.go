package model

import "time"

// Audit actions recorded by the engine.
const (
	AuditContainmentTriggered = "BIO_SECURITY_CONTAINMENT_TRIGGERED"
	AuditContainmentOverride  = "BIO_SECURITY_OVERRIDE"
	AuditWasteProcessed       = "WASTE_PROCESSED"
	AuditCreditsSpent         = "CIRCULAR_CREDITS_SPENT"
	AuditContractMatched      = "FORWARD_CONTRACT_MATCHED"

	ResourceOutbreakZone    = "OUTBREAK_ZONE"
	ResourceWasteInventory  = "WASTE_INVENTORY"
	ResourceCircularCredit  = "CIRCULAR_CREDIT"
	ResourceForwardContract = "FORWARD_CONTRACT"

	RiskCritical = "CRITICAL"
	RiskHigh     = "HIGH"
	RiskLow      = "LOW"

	// SystemActorID identifies audit events raised by the engine itself.
	SystemActorID = "1"
)

type AuditEvent struct {
	EventID      string    `json:"event_id"`
	ActorID      string    `json:"actor_id"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Details      string    `json:"details"`
	RiskLevel    string    `json:"risk_level"`
	CreatedAt    time.Time `json:"created_at"`
}
