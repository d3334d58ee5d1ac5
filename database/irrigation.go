package database

import (
	"context"
	"strings"

	"github.com/agrion/agrion/model"
	"github.com/lib/pq"
)

// escapeLike quotes LIKE metacharacters so term is matched literally.
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

func (q queries) FindIrrigationZonesByNameContaining(ctx context.Context, term string) ([]model.IrrigationZone, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT zone_id, name, COALESCE(farm_id, ''), pest_control_mode, fertigation_enabled, chemical_concentration, biosecurity_lockdown
		FROM agrion.irrigation_zones
		WHERE name LIKE '%' || $1 || '%'
		ORDER BY zone_id
	`, escapeLike(term))
	if err != nil {
		return nil, storageError(err, "failed to search irrigation zones")
	}
	defer rows.Close()

	var zones []model.IrrigationZone
	for rows.Next() {
		z := model.IrrigationZone{}
		if err := rows.Scan(&z.ZoneID, &z.Name, &z.FarmID, &z.PestControlMode, &z.FertigationEnabled, &z.ChemicalConcentration, &z.BiosecurityLockdown); err != nil {
			return nil, storageError(err, "failed to scan irrigation zone")
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "failed to iterate irrigation zones")
	}
	return zones, nil
}

func (q queries) ApplyIrrigationLockdown(ctx context.Context, zoneIDs []string, concentrationPpm float64) (int64, error) {
	if len(zoneIDs) == 0 {
		return 0, nil
	}
	result, err := q.db.ExecContext(ctx, `
		UPDATE agrion.irrigation_zones
		SET pest_control_mode = TRUE,
			fertigation_enabled = TRUE,
			chemical_concentration = $2,
			biosecurity_lockdown = TRUE
		WHERE zone_id = ANY($1)
	`, pq.Array(zoneIDs), concentrationPpm)
	if err != nil {
		return 0, storageError(err, "failed to lock down irrigation zones")
	}
	return rowsAffected(result, "failed to lock down irrigation zones")
}

func (q queries) ReleaseIrrigationLockdown(ctx context.Context, zoneIDs []string) (int64, error) {
	if len(zoneIDs) == 0 {
		return 0, nil
	}
	result, err := q.db.ExecContext(ctx, `
		UPDATE agrion.irrigation_zones
		SET pest_control_mode = FALSE,
			fertigation_enabled = FALSE,
			chemical_concentration = 0,
			biosecurity_lockdown = FALSE
		WHERE zone_id = ANY($1)
	`, pq.Array(zoneIDs))
	if err != nil {
		return 0, storageError(err, "failed to release irrigation zones")
	}
	return rowsAffected(result, "failed to release irrigation zones")
}
