package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/agrion/agrion/model"
)

func (q queries) CreateWaste(ctx context.Context, w model.WasteInventory) (model.WasteInventory, error) {
	if w.WasteID == "" {
		w.WasteID = model.GenerateUUIDWithSuffix("waste")
	}
	w.IsProcessed = false
	w.CreatedAt = time.Now().UTC()

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO agrion.waste_inventory (waste_id, farm_id, waste_type, quantity_kg, is_processed, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
	`, w.WasteID, w.FarmID, w.WasteType, w.QuantityKg, w.CreatedAt)
	if err != nil {
		return model.WasteInventory{}, storageError(err, "failed to record waste")
	}
	return w, nil
}

func (q queries) GetWasteForUpdate(ctx context.Context, wasteID string) (*model.WasteInventory, error) {
	w := model.WasteInventory{}
	err := q.db.QueryRowContext(ctx, `
		SELECT waste_id, farm_id, waste_type, quantity_kg, is_processed, created_at
		FROM agrion.waste_inventory
		WHERE waste_id = $1
		FOR UPDATE
	`, wasteID).Scan(&w.WasteID, &w.FarmID, &w.WasteType, &w.QuantityKg, &w.IsProcessed, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("waste record not found")
		}
		return nil, storageError(err, "failed to fetch waste record")
	}
	return &w, nil
}

func (q queries) MarkWasteProcessed(ctx context.Context, wasteID string) (bool, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE agrion.waste_inventory
		SET is_processed = TRUE
		WHERE waste_id = $1 AND is_processed = FALSE
	`, wasteID)
	if err != nil {
		return false, storageError(err, "failed to mark waste processed")
	}
	n, err := rowsAffected(result, "failed to mark waste processed")
	return n == 1, err
}

func (q queries) GetUnprocessedWaste(ctx context.Context, limit int) ([]model.WasteInventory, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT waste_id, farm_id, waste_type, quantity_kg, is_processed, created_at
		FROM agrion.waste_inventory
		WHERE is_processed = FALSE
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, storageError(err, "failed to fetch unprocessed waste")
	}
	defer rows.Close()

	var items []model.WasteInventory
	for rows.Next() {
		w := model.WasteInventory{}
		if err := rows.Scan(&w.WasteID, &w.FarmID, &w.WasteType, &w.QuantityKg, &w.IsProcessed, &w.CreatedAt); err != nil {
			return nil, storageError(err, "failed to scan waste record")
		}
		items = append(items, w)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "failed to iterate waste records")
	}
	return items, nil
}

func (q queries) GetPendingWasteKg(ctx context.Context, farmID string) (float64, error) {
	var total float64
	err := q.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity_kg), 0)
		FROM agrion.waste_inventory
		WHERE farm_id = $1 AND is_processed = FALSE
	`, farmID).Scan(&total)
	if err != nil {
		return 0, storageError(err, "failed to sum pending waste")
	}
	return total, nil
}

func (q queries) RecordBioEnergyOutput(ctx context.Context, output model.BioEnergyOutput) (model.BioEnergyOutput, error) {
	if output.OutputID == "" {
		output.OutputID = model.GenerateUUIDWithSuffix("energy")
	}
	output.CreatedAt = time.Now().UTC()

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO agrion.bio_energy_outputs (output_id, farm_id, waste_source_id, energy_kwh, efficiency_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, output.OutputID, output.FarmID, output.WasteSourceID, output.EnergyKwh, output.EfficiencyScore, output.CreatedAt)
	if err != nil {
		return model.BioEnergyOutput{}, storageError(err, "failed to record bio-energy output")
	}
	return output, nil
}

func (q queries) GetRecentBioEnergyOutputs(ctx context.Context, farmID string, limit int) ([]model.BioEnergyOutput, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT output_id, farm_id, waste_source_id, energy_kwh, efficiency_score, created_at
		FROM agrion.bio_energy_outputs
		WHERE farm_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, farmID, limit)
	if err != nil {
		return nil, storageError(err, "failed to fetch bio-energy outputs")
	}
	defer rows.Close()

	var outputs []model.BioEnergyOutput
	for rows.Next() {
		o := model.BioEnergyOutput{}
		if err := rows.Scan(&o.OutputID, &o.FarmID, &o.WasteSourceID, &o.EnergyKwh, &o.EfficiencyScore, &o.CreatedAt); err != nil {
			return nil, storageError(err, "failed to scan bio-energy output")
		}
		outputs = append(outputs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "failed to iterate bio-energy outputs")
	}
	return outputs, nil
}
