package agrion

import (
	"context"
	"fmt"
	"math"

	"github.com/agrion/agrion/database"
	"github.com/agrion/agrion/internal/apierror"
	"github.com/agrion/agrion/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var hedgingTracer = otel.Tracer("agrion.hedging")

const recentHedgingLogLimit = 10

// HedgingSweepResult aggregates one sweep. Skipped farms were too volatile to hedge.
type HedgingSweepResult struct {
	FarmsEvaluated     int  `json:"farms_evaluated"`
	ContractsGenerated int  `json:"contracts_generated"`
	FarmsSkipped       int  `json:"farms_skipped"`
	FarmsFailed        int  `json:"farms_failed"`
	Truncated          bool `json:"truncated"`
}

// RunHedgingSweep opens a PENDING forward contract for every harvest-ready farm whose hedge ratio
// clears the floor. Each farm's contract and hedging log commit together; one farm failing does
// not stop the sweep. Running the sweep twice opens two contracts per farm.
func (a *Agrion) RunHedgingSweep(ctx context.Context) (HedgingSweepResult, error) {
	ctx, span := hedgingTracer.Start(ctx, "RunHedgingSweep")
	defer span.End()

	result := HedgingSweepResult{}
	farms, err := a.datasource.GetFarmsAboveReadiness(ctx, a.cfg.Market.ReadinessThreshold)
	if err != nil {
		span.RecordError(err)
		return result, err
	}

	for _, farm := range farms {
		if ctx.Err() != nil {
			result.Truncated = true
			break
		}
		result.FarmsEvaluated++

		contract, err := a.hedgeFarm(ctx, farm)
		if err != nil {
			result.FarmsFailed++
			logrus.WithError(err).WithField("farm_id", farm.FarmID).Error("hedging failed for farm")
			continue
		}
		if contract == nil {
			result.FarmsSkipped++
			continue
		}
		result.ContractsGenerated++
		a.sendWebhook(ctx, EventContractCreated, contract)
	}

	span.SetAttributes(attribute.Int("contracts.generated", result.ContractsGenerated))
	return result, nil
}

// hedgeFarm returns nil without error when the farm is skipped.
func (a *Agrion) hedgeFarm(ctx context.Context, farm model.Farm) (*model.ForwardContract, error) {
	policy := a.cfg.Market

	volatility, err := a.volatility.Volatility(ctx, farm)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(volatility) {
		return nil, fmt.Errorf("volatility source returned NaN for farm %s", farm.FarmID)
	}
	volatility = math.Min(math.Max(volatility, 0), 1)

	hedgeRatio := 1 - volatility
	if hedgeRatio < policy.MinHedgeRatio {
		return nil, nil
	}

	price, err := a.prices.PricePerKg(ctx, policy.DefaultCropType)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("price source returned %v for %s", price, policy.DefaultCropType)
	}

	quantity := model.Float64OrDefault(farm.PredictedYieldKg, policy.DefaultYieldKg) * hedgeRatio
	deadline := a.now().UTC().Add(policy.DefaultDeliveryWindow())
	if farm.PredictedHarvestDate != nil {
		deadline = *farm.PredictedHarvestDate
	}

	var contract model.ForwardContract
	err = a.datasource.RunInTx(ctx, func(tx database.Store) error {
		var err error
		contract, err = tx.CreateForwardContract(ctx, model.ForwardContract{
			FarmID:               farm.FarmID,
			CropType:             policy.DefaultCropType,
			QuantityKg:           quantity,
			LockedPricePerKg:     price,
			DeliveryDeadline:     deadline,
			Status:               model.ContractStatusPending,
			HedgeRatio:           hedgeRatio,
			VolatilityAtCreation: volatility,
		})
		if err != nil {
			return err
		}

		_, err = tx.RecordHedgingLog(ctx, model.PriceHedgingLog{
			FarmID:              farm.FarmID,
			ContractID:          contract.ContractID,
			ActionTaken:         fmt.Sprintf("Locked %.1fkg @ %.2f", quantity, price),
			Reasoning:           fmt.Sprintf("Weather Volatility: %.2f. Optimized Hedge Ratio to %.2f to balance risk.", volatility, hedgeRatio),
			MarketPriceSnapshot: price,
			HedgeRatioApplied:   hedgeRatio,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// MatchContract assigns buyerID to a PENDING contract. Of several concurrent matchers exactly
// one succeeds; the others get INVALID_STATE.
func (a *Agrion) MatchContract(ctx context.Context, contractID, buyerID string) (*model.ForwardContract, error) {
	ctx, span := hedgingTracer.Start(ctx, "MatchContract")
	defer span.End()

	if buyerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "buyer_id is required", nil)
	}

	var (
		contract *model.ForwardContract
		staged   []model.AuditEvent
	)
	err := a.datasource.RunInTx(ctx, func(tx database.Store) error {
		current, err := tx.GetForwardContract(ctx, contractID)
		if err != nil {
			return err
		}
		if current.Status != model.ContractStatusPending {
			return apierror.NewAPIError(apierror.ErrInvalidState, "contract already matched or expired", nil)
		}

		matched, err := tx.MatchForwardContract(ctx, contractID, buyerID)
		if err != nil {
			return err
		}
		if !matched {
			return apierror.NewAPIError(apierror.ErrInvalidState, "contract already matched or expired", nil)
		}

		contract, err = tx.GetForwardContract(ctx, contractID)
		if err != nil {
			return err
		}

		return stageAudit(ctx, tx, &staged, model.AuditEvent{
			ActorID:      buyerID,
			Action:       model.AuditContractMatched,
			ResourceType: model.ResourceForwardContract,
			ResourceID:   contractID,
			Details:      fmt.Sprintf("Contract %s matched by buyer %s", contractID, buyerID),
			RiskLevel:    model.RiskLow,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	a.dispatchAudit(ctx, staged)
	a.sendWebhook(ctx, EventContractMatched, contract)
	return contract, nil
}

// FuturesDashboard returns the farm's readiness metrics, its contracts and the latest hedging decisions.
func (a *Agrion) FuturesDashboard(ctx context.Context, farmID string) (*model.FuturesDashboard, error) {
	farm, err := a.datasource.GetFarm(ctx, farmID)
	if err != nil {
		return nil, err
	}
	contracts, err := a.datasource.GetForwardContractsByFarm(ctx, farmID)
	if err != nil {
		return nil, err
	}
	logs, err := a.datasource.GetRecentHedgingLogs(ctx, farmID, recentHedgingLogLimit)
	if err != nil {
		return nil, err
	}
	if contracts == nil {
		contracts = []model.ForwardContract{}
	}
	if logs == nil {
		logs = []model.PriceHedgingLog{}
	}
	return &model.FuturesDashboard{Farm: *farm, Contracts: contracts, HedgingLog: logs}, nil
}
