package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/agrion/agrion/model"
)

func scanFarm(row rowScanner) (model.Farm, error) {
	f := model.Farm{}
	var location sql.NullString
	var yield sql.NullFloat64
	var harvest sql.NullTime
	err := row.Scan(&f.FarmID, &f.Name, &location, &f.HarvestReadinessIndex, &yield, &harvest)
	f.Location = location.String
	f.PredictedYieldKg = nullFloat(yield)
	f.PredictedHarvestDate = nullTime(harvest)
	return f, err
}

func (q queries) GetFarm(ctx context.Context, farmID string) (*model.Farm, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT farm_id, name, location, harvest_readiness_index, predicted_yield_kg, predicted_harvest_date
		FROM agrion.farms
		WHERE farm_id = $1
	`, farmID)
	f, err := scanFarm(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("farm not found")
		}
		return nil, storageError(err, "failed to fetch farm")
	}
	return &f, nil
}

func (q queries) GetFarmsAboveReadiness(ctx context.Context, threshold float64) ([]model.Farm, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT farm_id, name, location, harvest_readiness_index, predicted_yield_kg, predicted_harvest_date
		FROM agrion.farms
		WHERE harvest_readiness_index > $1
		ORDER BY farm_id
	`, threshold)
	if err != nil {
		return nil, storageError(err, "failed to fetch ready farms")
	}
	defer rows.Close()

	var farms []model.Farm
	for rows.Next() {
		f, err := scanFarm(rows)
		if err != nil {
			return nil, storageError(err, "failed to scan farm")
		}
		farms = append(farms, f)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "failed to iterate farms")
	}
	return farms, nil
}
