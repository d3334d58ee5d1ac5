package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/agrion/agrion/model"
)

const outbreakZoneColumns = `zone_id, status, disease_name, zone_key, wind_vector_deg, propagation_velocity, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOutbreakZone(row rowScanner) (model.OutbreakZone, error) {
	zone := model.OutbreakZone{}
	var wind, velocity sql.NullFloat64
	err := row.Scan(&zone.ZoneID, &zone.Status, &zone.DiseaseName, &zone.ZoneKey, &wind, &velocity, &zone.CreatedAt, &zone.UpdatedAt)
	if err != nil {
		return zone, err
	}
	zone.WindVectorDeg = nullFloat(wind)
	zone.PropagationVelocity = nullFloat(velocity)
	return zone, nil
}

func (q queries) CreateOutbreakZone(ctx context.Context, zone model.OutbreakZone) (model.OutbreakZone, error) {
	if zone.ZoneID == "" {
		zone.ZoneID = model.GenerateUUIDWithSuffix("zone")
	}
	if zone.Status == "" {
		zone.Status = model.OutbreakStatusActive
	}
	zone.CreatedAt = time.Now().UTC()
	zone.UpdatedAt = zone.CreatedAt

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO agrion.outbreak_zones (zone_id, status, disease_name, zone_key, wind_vector_deg, propagation_velocity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, zone.ZoneID, zone.Status, zone.DiseaseName, zone.ZoneKey, zone.WindVectorDeg, zone.PropagationVelocity, zone.CreatedAt, zone.UpdatedAt)
	if err != nil {
		return model.OutbreakZone{}, storageError(err, "failed to record outbreak zone")
	}
	return zone, nil
}

func (q queries) GetOutbreakZoneForUpdate(ctx context.Context, zoneID string) (*model.OutbreakZone, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+outbreakZoneColumns+`
		FROM agrion.outbreak_zones
		WHERE zone_id = $1
		FOR UPDATE
	`, zoneID)
	zone, err := scanOutbreakZone(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("outbreak zone not found")
		}
		return nil, storageError(err, "failed to fetch outbreak zone")
	}
	return &zone, nil
}

func (q queries) GetActiveOutbreakZones(ctx context.Context) ([]model.OutbreakZone, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+outbreakZoneColumns+`
		FROM agrion.outbreak_zones
		WHERE status <> $1
		ORDER BY created_at ASC
	`, model.OutbreakStatusContained)
	if err != nil {
		return nil, storageError(err, "failed to fetch active outbreak zones")
	}
	defer rows.Close()

	var zones []model.OutbreakZone
	for rows.Next() {
		zone, err := scanOutbreakZone(rows)
		if err != nil {
			return nil, storageError(err, "failed to scan outbreak zone")
		}
		zones = append(zones, zone)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "failed to iterate outbreak zones")
	}
	return zones, nil
}

func (q queries) UpdateOutbreakZoneStatus(ctx context.Context, zoneID, status string) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE agrion.outbreak_zones SET status = $2, updated_at = $3 WHERE zone_id = $1
	`, zoneID, status, time.Now().UTC())
	if err != nil {
		return storageError(err, "failed to update outbreak zone")
	}
	n, err := rowsAffected(result, "failed to update outbreak zone")
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("outbreak zone not found")
	}
	return nil
}

func (q queries) RecordMigrationVector(ctx context.Context, vector model.MigrationVector) (model.MigrationVector, error) {
	if vector.VectorID == "" {
		vector.VectorID = model.GenerateUUIDWithSuffix("vector")
	}
	vector.CreatedAt = time.Now().UTC()

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO agrion.migration_vectors (vector_id, outbreak_zone_id, direction_deg, speed_kmh, probability_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, vector.VectorID, vector.OutbreakZoneID, vector.DirectionDeg, vector.SpeedKmh, vector.ProbabilityScore, vector.CreatedAt)
	if err != nil {
		return model.MigrationVector{}, storageError(err, "failed to record migration vector")
	}
	return vector, nil
}

func (q queries) GetRecentMigrationVectors(ctx context.Context, limit int) ([]model.MigrationVector, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT vector_id, outbreak_zone_id, direction_deg, speed_kmh, probability_score, created_at
		FROM agrion.migration_vectors
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, storageError(err, "failed to fetch migration vectors")
	}
	defer rows.Close()

	var vectors []model.MigrationVector
	for rows.Next() {
		v := model.MigrationVector{}
		if err := rows.Scan(&v.VectorID, &v.OutbreakZoneID, &v.DirectionDeg, &v.SpeedKmh, &v.ProbabilityScore, &v.CreatedAt); err != nil {
			return nil, storageError(err, "failed to scan migration vector")
		}
		vectors = append(vectors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "failed to iterate migration vectors")
	}
	return vectors, nil
}

func (q queries) RecordContainment(ctx context.Context, containment model.BiosecurityContainment) (model.BiosecurityContainment, error) {
	if containment.ContainmentID == "" {
		containment.ContainmentID = model.GenerateUUIDWithSuffix("containment")
	}
	containment.IsActive = true
	containment.CreatedAt = time.Now().UTC()

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO agrion.biosecurity_containments (containment_id, outbreak_zone_id, blockade_type, quarantine_level, is_active, created_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)
	`, containment.ContainmentID, containment.OutbreakZoneID, containment.BlockadeType, containment.QuarantineLevel, containment.CreatedAt)
	if err != nil {
		return model.BiosecurityContainment{}, storageError(err, "failed to record containment")
	}
	return containment, nil
}

func scanContainment(row rowScanner) (model.BiosecurityContainment, error) {
	c := model.BiosecurityContainment{}
	var deactivatedAt sql.NullTime
	err := row.Scan(&c.ContainmentID, &c.OutbreakZoneID, &c.BlockadeType, &c.QuarantineLevel, &c.IsActive, &c.CreatedAt, &deactivatedAt)
	c.DeactivatedAt = nullTime(deactivatedAt)
	return c, err
}

func (q queries) GetContainmentForUpdate(ctx context.Context, containmentID string) (*model.BiosecurityContainment, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT containment_id, outbreak_zone_id, blockade_type, quarantine_level, is_active, created_at, deactivated_at
		FROM agrion.biosecurity_containments
		WHERE containment_id = $1
		FOR UPDATE
	`, containmentID)
	c, err := scanContainment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("containment not found")
		}
		return nil, storageError(err, "failed to fetch containment")
	}
	return &c, nil
}

func (q queries) DeactivateContainment(ctx context.Context, containmentID string) (bool, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE agrion.biosecurity_containments
		SET is_active = FALSE, deactivated_at = $2
		WHERE containment_id = $1 AND is_active = TRUE
	`, containmentID, time.Now().UTC())
	if err != nil {
		return false, storageError(err, "failed to deactivate containment")
	}
	n, err := rowsAffected(result, "failed to deactivate containment")
	return n == 1, err
}

func (q queries) GetActiveContainments(ctx context.Context) ([]model.BiosecurityContainment, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT containment_id, outbreak_zone_id, blockade_type, quarantine_level, is_active, created_at, deactivated_at
		FROM agrion.biosecurity_containments
		WHERE is_active = TRUE
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, storageError(err, "failed to fetch active containments")
	}
	defer rows.Close()

	var containments []model.BiosecurityContainment
	for rows.Next() {
		c, err := scanContainment(rows)
		if err != nil {
			return nil, storageError(err, "failed to scan containment")
		}
		containments = append(containments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "failed to iterate containments")
	}
	return containments, nil
}

func (q queries) CountActiveContainments(ctx context.Context, zoneID string) (int, error) {
	var count int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM agrion.biosecurity_containments WHERE outbreak_zone_id = $1 AND is_active = TRUE
	`, zoneID).Scan(&count)
	if err != nil {
		return 0, storageError(err, "failed to count active containments")
	}
	return count, nil
}
