package agrion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agrion/agrion/database"
	"github.com/agrion/agrion/internal/apierror"
	"github.com/agrion/agrion/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var transformerTracer = otel.Tracer("agrion.transformer")

const recentProductionLimit = 15

// errWasteClaimed aborts a conversion whose waste record was claimed by a concurrent run.
var errWasteClaimed = errors.New("waste record already processed")

func (a *Agrion) yieldRate(wasteType string) float64 {
	if rate, ok := a.cfg.Transformer.YieldRates[wasteType]; ok {
		return rate
	}
	return a.cfg.Transformer.DefaultYieldRate
}

// ProcessWaste converts one waste record into energy and credits. Missing or already processed
// records yield 0 without error. The output, the processed flag, the credit award and the audit
// record commit together or not at all.
func (a *Agrion) ProcessWaste(ctx context.Context, wasteID string) (float64, error) {
	ctx, span := transformerTracer.Start(ctx, "ProcessWaste")
	defer span.End()
	span.SetAttributes(attribute.String("waste.id", wasteID))

	var (
		energy  float64
		credits decimal.Decimal
		waste   *model.WasteInventory
		staged  []model.AuditEvent
	)
	err := a.datasource.RunInTx(ctx, func(tx database.Store) error {
		var err error
		waste, err = tx.GetWasteForUpdate(ctx, wasteID)
		if err != nil {
			return err
		}
		if waste.IsProcessed {
			return errWasteClaimed
		}

		energy = waste.QuantityKg * a.yieldRate(waste.WasteType)
		if _, err := tx.RecordBioEnergyOutput(ctx, model.BioEnergyOutput{
			FarmID:          waste.FarmID,
			WasteSourceID:   waste.WasteID,
			EnergyKwh:       energy,
			EfficiencyScore: a.cfg.Transformer.Efficiency,
		}); err != nil {
			return err
		}

		claimed, err := tx.MarkWasteProcessed(ctx, wasteID)
		if err != nil {
			return err
		}
		if !claimed {
			return errWasteClaimed
		}

		credits = decimal.NewFromFloat(energy * a.cfg.Transformer.CreditsPerKwh)
		if _, err := a.awardCredits(ctx, tx, waste.FarmID, credits); err != nil {
			return err
		}

		return stageAudit(ctx, tx, &staged, model.AuditEvent{
			ActorID:      model.SystemActorID,
			Action:       model.AuditWasteProcessed,
			ResourceType: model.ResourceWasteInventory,
			ResourceID:   wasteID,
			Details:      fmt.Sprintf("Converted %.2fkg of %s into %.2f kWh and awarded %s credits.", waste.QuantityKg, waste.WasteType, energy, credits.String()),
			RiskLevel:    model.RiskLow,
		})
	})
	if errors.Is(err, errWasteClaimed) || apierror.Is(err, apierror.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	a.dispatchAudit(ctx, staged)
	a.sendWebhook(ctx, EventWasteProcessed, map[string]interface{}{
		"waste_id":   wasteID,
		"farm_id":    waste.FarmID,
		"energy_kwh": energy,
		"credits":    credits,
	})
	return energy, nil
}

// ReportWaste records a new batch of farm waste and, when a queue is configured, schedules its conversion.
func (a *Agrion) ReportWaste(ctx context.Context, waste model.WasteInventory) (model.WasteInventory, error) {
	ctx, span := transformerTracer.Start(ctx, "ReportWaste")
	defer span.End()

	waste.FarmID = strings.TrimSpace(waste.FarmID)
	waste.WasteType = strings.ToUpper(strings.TrimSpace(waste.WasteType))
	if waste.FarmID == "" {
		return model.WasteInventory{}, apierror.NewAPIError(apierror.ErrInvalidInput, "farm_id is required", nil)
	}
	if waste.QuantityKg <= 0 {
		return model.WasteInventory{}, apierror.NewAPIError(apierror.ErrInvalidInput, "quantity must be positive", nil)
	}
	if waste.WasteType == "" {
		waste.WasteType = model.WasteTypeBioMass
	}

	created, err := a.datasource.CreateWaste(ctx, waste)
	if err != nil {
		span.RecordError(err)
		return model.WasteInventory{}, err
	}

	if a.queue != nil {
		if err := a.queue.EnqueueWasteProcessing(ctx, created.WasteID); err != nil {
			logrus.WithError(err).WithField("waste_id", created.WasteID).Warn("failed to enqueue waste processing; the periodic sync will pick it up")
		}
	}
	return created, nil
}

// CircularDashboard returns the farm's credit balance, unprocessed waste and recent production.
func (a *Agrion) CircularDashboard(ctx context.Context, farmID string) (*model.CircularDashboard, error) {
	credit, err := a.GetCredit(ctx, farmID)
	if err != nil {
		return nil, err
	}
	pending, err := a.datasource.GetPendingWasteKg(ctx, farmID)
	if err != nil {
		return nil, err
	}
	recent, err := a.datasource.GetRecentBioEnergyOutputs(ctx, farmID, recentProductionLimit)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []model.BioEnergyOutput{}
	}
	return &model.CircularDashboard{
		Credit:           *credit,
		PendingWasteKg:   pending,
		RecentProduction: recent,
	}, nil
}
