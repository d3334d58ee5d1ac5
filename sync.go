package agrion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redlock "github.com/agrion/agrion/internal/lock"
	"github.com/agrion/agrion/model"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var syncTracer = otel.Tracer("agrion.sync")

// Batch status values.
const (
	SyncStatusCompleted       = "completed"
	SyncStatusSkipped         = "skipped"
	SyncStatusProcessed       = "processed"
	SyncStatusNoActiveThreats = "no_active_threats"
)

// lockMargin keeps the single-flight lock alive slightly past the batch deadline.
const lockMargin = 30 * time.Second

type WasteSyncResult struct {
	Status         string  `json:"status"`
	ItemsProcessed int     `json:"items_processed"`
	ItemsFailed    int     `json:"items_failed"`
	TotalEnergyKwh float64 `json:"total_energy_kwh"`
	Truncated      bool    `json:"truncated"`
}

type QuarantineScanResult struct {
	Status           string `json:"status"`
	ZonesAnalyzed    int    `json:"zones_analyzed"`
	ZonesFailed      int    `json:"zones_failed"`
	LockedViaTracing int64  `json:"locked_via_tracing"`
	Truncated        bool   `json:"truncated"`
}

type HedgingSyncResult struct {
	Status string `json:"status"`
	HedgingSweepResult
}

// singleFlight runs fn under the batch deadline while holding the task kind's lock. It reports
// false without running fn when another run of the same kind holds the lock. Without redis
// there is nothing to coordinate with and fn always runs.
func (a *Agrion) singleFlight(ctx context.Context, taskType string, fn func(ctx context.Context) error) (bool, error) {
	maxDuration := a.cfg.Orchestrator.MaxBatchDuration()
	ctx, cancel := context.WithTimeout(ctx, maxDuration)
	defer cancel()

	if a.redis == nil {
		return true, fn(ctx)
	}

	locker := redlock.NewLocker(a.redis, redlock.SingleFlightKey(taskType), model.GenerateUUIDWithSuffix("run"))
	if err := locker.Lock(ctx, maxDuration+lockMargin); err != nil {
		if errors.Is(err, redlock.ErrLockHeld) {
			logrus.WithField("task", taskType).Info("previous run still in progress, skipping")
			trace.SpanFromContext(ctx).AddEvent("single-flight lock held", trace.WithAttributes(attribute.String("task", taskType)))
			return false, nil
		}
		return false, err
	}
	defer func() {
		if err := locker.Unlock(context.WithoutCancel(ctx)); err != nil {
			logrus.WithError(err).WithField("task", taskType).Warn("failed to release single-flight lock")
		}
	}()

	return true, fn(ctx)
}

// CircularEconomySync converts every unprocessed waste record, up to the batch size. A failing
// record is logged and counted; it does not stop the batch.
func (a *Agrion) CircularEconomySync(ctx context.Context) (WasteSyncResult, error) {
	ctx, span := syncTracer.Start(ctx, "CircularEconomySync")
	defer span.End()

	result := WasteSyncResult{Status: SyncStatusCompleted}
	ran, err := a.singleFlight(ctx, TaskWasteSync, func(ctx context.Context) error {
		items, err := a.datasource.GetUnprocessedWaste(ctx, a.cfg.Orchestrator.BatchSize)
		if err != nil {
			return err
		}
		for _, item := range items {
			if ctx.Err() != nil {
				result.Truncated = true
				break
			}
			energy, err := a.ProcessWaste(ctx, item.WasteID)
			if err != nil {
				result.ItemsFailed++
				logrus.WithError(err).WithField("waste_id", item.WasteID).Error("failed to process waste")
				continue
			}
			result.ItemsProcessed++
			result.TotalEnergyKwh += energy
		}
		return nil
	})
	if !ran && err == nil {
		result.Status = SyncStatusSkipped
	}
	if err != nil {
		span.RecordError(err)
	}
	span.SetAttributes(attribute.Int("items.processed", result.ItemsProcessed), attribute.Int("items.failed", result.ItemsFailed))
	return result, err
}

// QuarantineScan re-analyzes every active outbreak, then trace-locks batches whose custody
// history passed through any active red zone.
func (a *Agrion) QuarantineScan(ctx context.Context) (QuarantineScanResult, error) {
	ctx, span := syncTracer.Start(ctx, "QuarantineScan")
	defer span.End()

	result := QuarantineScanResult{Status: SyncStatusNoActiveThreats}
	ran, err := a.singleFlight(ctx, TaskQuarantineScan, func(ctx context.Context) error {
		zones, err := a.datasource.GetActiveOutbreakZones(ctx)
		if err != nil {
			return err
		}
		if len(zones) == 0 {
			return nil
		}

		redZones := make([]string, 0, len(zones))
		for _, zone := range zones {
			redZones = append(redZones, zone.ZoneKey)
			if ctx.Err() != nil {
				result.Truncated = true
				continue
			}
			analyzed, err := a.AnalyzeOutbreak(ctx, zone.ZoneID)
			if err != nil {
				result.ZonesFailed++
				logrus.WithError(err).WithField("zone_id", zone.ZoneID).Error("failed to analyze outbreak")
				continue
			}
			if analyzed {
				result.ZonesAnalyzed++
			}
		}
		if result.Truncated {
			result.Status = SyncStatusProcessed
			return nil
		}

		result.LockedViaTracing, err = a.datasource.TraceLockBatches(ctx, redZones, model.QuarantineTraceLock, model.BatchStatusQualityCheck)
		if err != nil {
			return err
		}
		result.Status = SyncStatusProcessed
		return nil
	})
	if !ran && err == nil {
		result.Status = SyncStatusSkipped
	}
	if err != nil {
		span.RecordError(err)
	}
	return result, err
}

// FuturesHedgingSync runs the hedging sweep as an orchestrated batch.
func (a *Agrion) FuturesHedgingSync(ctx context.Context) (HedgingSyncResult, error) {
	ctx, span := syncTracer.Start(ctx, "FuturesHedgingSync")
	defer span.End()

	result := HedgingSyncResult{Status: SyncStatusCompleted}
	ran, err := a.singleFlight(ctx, TaskHedgingSync, func(ctx context.Context) error {
		sweep, err := a.RunHedgingSweep(ctx)
		result.HedgingSweepResult = sweep
		return err
	})
	if !ran && err == nil {
		result.Status = SyncStatusSkipped
	}
	if err != nil {
		span.RecordError(err)
	}
	return result, err
}

// Task handlers registered with the worker mux.

func (a *Agrion) HandleWasteSync(ctx context.Context, _ *asynq.Task) error {
	result, err := a.CircularEconomySync(ctx)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"status":           result.Status,
		"items_processed":  result.ItemsProcessed,
		"items_failed":     result.ItemsFailed,
		"total_energy_kwh": result.TotalEnergyKwh,
		"truncated":        result.Truncated,
	}).Info("circular economy sync finished")
	return nil
}

func (a *Agrion) HandleQuarantineScan(ctx context.Context, _ *asynq.Task) error {
	result, err := a.QuarantineScan(ctx)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"status":             result.Status,
		"zones_analyzed":     result.ZonesAnalyzed,
		"zones_failed":       result.ZonesFailed,
		"locked_via_tracing": result.LockedViaTracing,
		"truncated":          result.Truncated,
	}).Info("quarantine scan finished")
	return nil
}

func (a *Agrion) HandleHedgingSync(ctx context.Context, _ *asynq.Task) error {
	result, err := a.FuturesHedgingSync(ctx)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"status":              result.Status,
		"contracts_generated": result.ContractsGenerated,
		"farms_skipped":       result.FarmsSkipped,
		"farms_failed":        result.FarmsFailed,
	}).Info("futures hedging sync finished")
	return nil
}

func (a *Agrion) HandleProcessWaste(ctx context.Context, task *asynq.Task) error {
	var payload WasteTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid waste task payload: %v: %w", err, asynq.SkipRetry)
	}
	_, err := a.ProcessWaste(ctx, payload.WasteID)
	return err
}

func (a *Agrion) HandleAnalyzeOutbreak(ctx context.Context, task *asynq.Task) error {
	var payload OutbreakTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid outbreak task payload: %v: %w", err, asynq.SkipRetry)
	}
	_, err := a.AnalyzeOutbreak(ctx, payload.ZoneID)
	return err
}
