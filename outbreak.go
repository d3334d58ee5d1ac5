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

package agrion

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/agrion/agrion/database"
	"github.com/agrion/agrion/internal/apierror"
	"github.com/agrion/agrion/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var outbreakTracer = otel.Tracer("agrion.outbreak")

const recentVectorLimit = 10

// errZoneSkipped aborts an analysis of a zone that is missing or already contained.
var errZoneSkipped = errors.New("outbreak zone skipped")

// ContainmentReport describes the lockdown applied by one analysis.
type ContainmentReport struct {
	ZoneID          string                       `json:"zone_id"`
	Vector          model.MigrationVector        `json:"vector"`
	Containment     model.BiosecurityContainment `json:"containment"`
	IrrigationZones []string                     `json:"irrigation_zones"`
	BatchesLocked   int64                        `json:"batches_locked"`
}

// OverrideResult describes what an override released.
type OverrideResult struct {
	ContainmentID      string `json:"containment_id"`
	ZoneID             string `json:"zone_id"`
	Lifted             bool   `json:"lifted"`
	IrrigationReleased int64  `json:"irrigation_released"`
	BatchesReleased    int64  `json:"batches_released"`
	TracedReleased     int64  `json:"traced_released"`
}

// AnalyzeOutbreak predicts the zone's migration vector and applies the full lockdown:
// emergency fertigation on the targeted irrigation zones, a red-zone lock on every batch at
// the zone key, and a new containment record. It reports false without error when the zone
// is missing or contained. Repeated analyses of an active zone each apply a fresh lockdown.
func (a *Agrion) AnalyzeOutbreak(ctx context.Context, zoneID string) (bool, error) {
	ctx, span := outbreakTracer.Start(ctx, "AnalyzeOutbreak")
	defer span.End()
	span.SetAttributes(attribute.String("zone.id", zoneID))

	report, err := a.analyzeOutbreak(ctx, zoneID)
	if errors.Is(err, errZoneSkipped) || apierror.Is(err, apierror.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		return false, err
	}

	a.sendWebhook(ctx, EventContainmentTriggered, report)
	return true, nil
}

func (a *Agrion) analyzeOutbreak(ctx context.Context, zoneID string) (*ContainmentReport, error) {
	policy := a.cfg.Outbreak
	report := &ContainmentReport{ZoneID: zoneID}
	var staged []model.AuditEvent

	err := a.datasource.RunInTx(ctx, func(tx database.Store) error {
		zone, err := tx.GetOutbreakZoneForUpdate(ctx, zoneID)
		if err != nil {
			return err
		}
		if zone.Status == model.OutbreakStatusContained {
			return errZoneSkipped
		}

		report.Vector, err = tx.RecordMigrationVector(ctx, model.MigrationVector{
			OutbreakZoneID:   zone.ZoneID,
			DirectionDeg:     model.Float64OrDefault(zone.WindVectorDeg, policy.DefaultDirectionDeg),
			SpeedKmh:         model.Float64OrDefault(zone.PropagationVelocity, policy.DefaultSpeedKmh),
			ProbabilityScore: policy.Confidence,
		})
		if err != nil {
			return err
		}

		targets, err := a.targeting.ResolveIrrigationZones(ctx, tx, *zone)
		if err != nil {
			return err
		}
		report.IrrigationZones = irrigationZoneIDs(targets)
		if _, err := tx.ApplyIrrigationLockdown(ctx, report.IrrigationZones, policy.EmergencyConcentrationPpm); err != nil {
			return err
		}

		report.BatchesLocked, err = tx.LockBatchesAtLocation(ctx, zone.ZoneKey, model.QuarantineRedZoneLocked, model.BatchStatusRejected)
		if err != nil {
			return err
		}

		report.Containment, err = tx.RecordContainment(ctx, model.BiosecurityContainment{
			OutbreakZoneID:  zone.ZoneID,
			BlockadeType:    model.BlockadeBatchLockFertigationOn,
			QuarantineLevel: model.QuarantineLevelCritical,
		})
		if err != nil {
			return err
		}

		return stageAudit(ctx, tx, &staged, model.AuditEvent{
			ActorID:      model.SystemActorID,
			Action:       model.AuditContainmentTriggered,
			ResourceType: model.ResourceOutbreakZone,
			ResourceID:   zone.ZoneID,
			Details:      fmt.Sprintf("Autonomous shutdown of %d batches and %d irrigation nodes.", report.BatchesLocked, len(targets)),
			RiskLevel:    model.RiskCritical,
		})
	})
	if err != nil {
		return nil, err
	}

	a.dispatchAudit(ctx, staged)
	return report, nil
}

// ReportOutbreak records a new outbreak zone. The zone key defaults to the zone ID. When a queue
// is configured the analysis is scheduled immediately instead of waiting for the next scan.
func (a *Agrion) ReportOutbreak(ctx context.Context, zone model.OutbreakZone) (model.OutbreakZone, error) {
	ctx, span := outbreakTracer.Start(ctx, "ReportOutbreak")
	defer span.End()

	zone.DiseaseName = strings.TrimSpace(zone.DiseaseName)
	if zone.DiseaseName == "" {
		return model.OutbreakZone{}, apierror.NewAPIError(apierror.ErrInvalidInput, "disease_name is required", nil)
	}
	if zone.ZoneID == "" {
		zone.ZoneID = model.GenerateUUIDWithSuffix("zone")
	}
	if zone.ZoneKey == "" {
		zone.ZoneKey = zone.ZoneID
	}
	zone.Status = model.OutbreakStatusActive

	created, err := a.datasource.CreateOutbreakZone(ctx, zone)
	if err != nil {
		span.RecordError(err)
		return model.OutbreakZone{}, err
	}

	if a.queue != nil {
		if err := a.queue.EnqueueOutbreakAnalysis(ctx, created.ZoneID); err != nil {
			logrus.WithError(err).WithField("zone_id", created.ZoneID).Warn("failed to enqueue outbreak analysis; the quarantine scan will pick it up")
		}
	}
	return created, nil
}

// OverrideContainment lifts one containment on an operator's authority and marks its zone
// contained. Irrigation and batch locks are released only when no other containment for the
// zone is still active.
func (a *Agrion) OverrideContainment(ctx context.Context, containmentID, actorID string) (*OverrideResult, error) {
	ctx, span := outbreakTracer.Start(ctx, "OverrideContainment")
	defer span.End()

	if actorID == "" {
		actorID = model.SystemActorID
	}

	result := &OverrideResult{ContainmentID: containmentID}
	var staged []model.AuditEvent
	err := a.datasource.RunInTx(ctx, func(tx database.Store) error {
		containment, err := tx.GetContainmentForUpdate(ctx, containmentID)
		if err != nil {
			return err
		}
		if !containment.IsActive {
			return apierror.NewAPIError(apierror.ErrInvalidState, "containment is already inactive", nil)
		}

		deactivated, err := tx.DeactivateContainment(ctx, containmentID)
		if err != nil {
			return err
		}
		if !deactivated {
			return apierror.NewAPIError(apierror.ErrInvalidState, "containment is already inactive", nil)
		}

		zone, err := tx.GetOutbreakZoneForUpdate(ctx, containment.OutbreakZoneID)
		if err != nil {
			return err
		}
		result.ZoneID = zone.ZoneID
		if err := tx.UpdateOutbreakZoneStatus(ctx, zone.ZoneID, model.OutbreakStatusContained); err != nil {
			return err
		}

		remaining, err := tx.CountActiveContainments(ctx, zone.ZoneID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if err := a.releaseZone(ctx, tx, *zone, result); err != nil {
				return err
			}
		}

		details := fmt.Sprintf("Containment %s deactivated; %d containments still active.", containmentID, remaining)
		if result.Lifted {
			details = fmt.Sprintf("Lockdown lifted: released %d irrigation nodes, %d red-zone batches and %d traced batches.",
				result.IrrigationReleased, result.BatchesReleased, result.TracedReleased)
		}
		return stageAudit(ctx, tx, &staged, model.AuditEvent{
			ActorID:      actorID,
			Action:       model.AuditContainmentOverride,
			ResourceType: model.ResourceOutbreakZone,
			ResourceID:   zone.ZoneID,
			Details:      details,
			RiskLevel:    model.RiskHigh,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	a.dispatchAudit(ctx, staged)
	a.sendWebhook(ctx, EventContainmentLifted, result)
	return result, nil
}

// releaseZone lifts the zone's locks, keeping every irrigation zone, red-zone batch and traced
// batch that another uncontained outbreak still claims.
func (a *Agrion) releaseZone(ctx context.Context, tx database.Store, zone model.OutbreakZone, result *OverrideResult) error {
	others, err := tx.GetActiveOutbreakZones(ctx)
	if err != nil {
		return err
	}

	heldKeys := []string{}
	heldIrrigation := map[string]struct{}{}
	for _, other := range others {
		if other.ZoneID == zone.ZoneID {
			continue
		}
		heldKeys = append(heldKeys, other.ZoneKey)
		claimed, err := a.targeting.ResolveIrrigationZones(ctx, tx, other)
		if err != nil {
			return err
		}
		for _, id := range irrigationZoneIDs(claimed) {
			heldIrrigation[id] = struct{}{}
		}
	}

	targets, err := a.targeting.ResolveIrrigationZones(ctx, tx, zone)
	if err != nil {
		return err
	}
	release := make([]string, 0, len(targets))
	for _, id := range irrigationZoneIDs(targets) {
		if _, held := heldIrrigation[id]; !held {
			release = append(release, id)
		}
	}
	result.IrrigationReleased, err = tx.ReleaseIrrigationLockdown(ctx, release)
	if err != nil {
		return err
	}

	if !slices.Contains(heldKeys, zone.ZoneKey) {
		result.BatchesReleased, err = tx.ReleaseBatchesAtLocation(ctx, zone.ZoneKey, model.QuarantineRedZoneLocked, model.BatchStatusQualityCheck)
		if err != nil {
			return err
		}
	}
	result.TracedReleased, err = tx.ReleaseTracedBatches(ctx, zone.ZoneKey, heldKeys, model.QuarantineTraceLock, model.BatchStatusQualityCheck)
	if err != nil {
		return err
	}
	result.Lifted = true
	return nil
}
