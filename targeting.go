package agrion

import (
	"context"
	"strings"

	"github.com/agrion/agrion/database"
	"github.com/agrion/agrion/model"
)

// TargetingPolicy resolves the irrigation zones an outbreak puts under emergency treatment.
// It runs inside the containment transaction and must only read through tx.
type TargetingPolicy interface {
	ResolveIrrigationZones(ctx context.Context, tx database.Store, zone model.OutbreakZone) ([]model.IrrigationZone, error)
}

// TargetingFunc adapts a plain function to TargetingPolicy.
type TargetingFunc func(ctx context.Context, tx database.Store, zone model.OutbreakZone) ([]model.IrrigationZone, error)

func (f TargetingFunc) ResolveIrrigationZones(ctx context.Context, tx database.Store, zone model.OutbreakZone) ([]model.IrrigationZone, error) {
	return f(ctx, tx, zone)
}

// DiseaseNameTargeting selects irrigation zones whose name contains the outbreak's disease name.
// It is a naming convention, not a spatial model. An outbreak without a disease name targets nothing.
type DiseaseNameTargeting struct{}

func (DiseaseNameTargeting) ResolveIrrigationZones(ctx context.Context, tx database.Store, zone model.OutbreakZone) ([]model.IrrigationZone, error) {
	term := strings.TrimSpace(zone.DiseaseName)
	if term == "" {
		return nil, nil
	}
	return tx.FindIrrigationZonesByNameContaining(ctx, term)
}

func irrigationZoneIDs(zones []model.IrrigationZone) []string {
	ids := make([]string, 0, len(zones))
	for _, z := range zones {
		ids = append(ids, z.ZoneID)
	}
	return ids
}
