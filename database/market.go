package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/agrion/agrion/model"
)

const contractColumns = `contract_id, farm_id, buyer_id, crop_type, quantity_kg, locked_price_per_kg, delivery_deadline,
	status, hedge_ratio, volatility_at_creation, version, created_at`

func scanContract(row rowScanner) (model.ForwardContract, error) {
	c := model.ForwardContract{}
	var buyer sql.NullString
	err := row.Scan(&c.ContractID, &c.FarmID, &buyer, &c.CropType, &c.QuantityKg, &c.LockedPricePerKg, &c.DeliveryDeadline,
		&c.Status, &c.HedgeRatio, &c.VolatilityAtCreation, &c.Version, &c.CreatedAt)
	c.BuyerID = nullString(buyer)
	return c, err
}

func (q queries) CreateForwardContract(ctx context.Context, contract model.ForwardContract) (model.ForwardContract, error) {
	if contract.ContractID == "" {
		contract.ContractID = model.GenerateUUIDWithSuffix("contract")
	}
	if contract.Status == "" {
		contract.Status = model.ContractStatusPending
	}
	contract.Version = 0
	contract.CreatedAt = time.Now().UTC()

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO agrion.forward_contracts (`+contractColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, contract.ContractID, contract.FarmID, contract.BuyerID, contract.CropType, contract.QuantityKg, contract.LockedPricePerKg,
		contract.DeliveryDeadline, contract.Status, contract.HedgeRatio, contract.VolatilityAtCreation, contract.Version, contract.CreatedAt)
	if err != nil {
		return model.ForwardContract{}, storageError(err, "failed to create forward contract")
	}
	return contract, nil
}

func (q queries) GetForwardContract(ctx context.Context, contractID string) (*model.ForwardContract, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM agrion.forward_contracts WHERE contract_id = $1`, contractID)
	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("forward contract not found")
		}
		return nil, storageError(err, "failed to fetch forward contract")
	}
	return &c, nil
}

func (q queries) MatchForwardContract(ctx context.Context, contractID, buyerID string) (bool, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE agrion.forward_contracts
		SET buyer_id = $2, status = $3, version = version + 1
		WHERE contract_id = $1 AND status = $4
	`, contractID, buyerID, model.ContractStatusMatched, model.ContractStatusPending)
	if err != nil {
		return false, storageError(err, "failed to match forward contract")
	}
	n, err := rowsAffected(result, "failed to match forward contract")
	return n == 1, err
}

func (q queries) GetForwardContractsByFarm(ctx context.Context, farmID string) ([]model.ForwardContract, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+contractColumns+`
		FROM agrion.forward_contracts
		WHERE farm_id = $1
		ORDER BY created_at DESC
	`, farmID)
	if err != nil {
		return nil, storageError(err, "failed to fetch forward contracts")
	}
	defer rows.Close()

	var contracts []model.ForwardContract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, storageError(err, "failed to scan forward contract")
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "failed to iterate forward contracts")
	}
	return contracts, nil
}

func (q queries) RecordHedgingLog(ctx context.Context, entry model.PriceHedgingLog) (model.PriceHedgingLog, error) {
	if entry.LogID == "" {
		entry.LogID = model.GenerateUUIDWithSuffix("hedge")
	}
	entry.CreatedAt = time.Now().UTC()

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO agrion.price_hedging_logs (log_id, farm_id, contract_id, action_taken, reasoning, market_price_snapshot, hedge_ratio_applied, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.LogID, entry.FarmID, entry.ContractID, entry.ActionTaken, entry.Reasoning, entry.MarketPriceSnapshot, entry.HedgeRatioApplied, entry.CreatedAt)
	if err != nil {
		return model.PriceHedgingLog{}, storageError(err, "failed to record hedging log")
	}
	return entry, nil
}

func (q queries) GetRecentHedgingLogs(ctx context.Context, farmID string, limit int) ([]model.PriceHedgingLog, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT log_id, farm_id, contract_id, action_taken, reasoning, market_price_snapshot, hedge_ratio_applied, created_at
		FROM agrion.price_hedging_logs
		WHERE farm_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, farmID, limit)
	if err != nil {
		return nil, storageError(err, "failed to fetch hedging logs")
	}
	defer rows.Close()

	var entries []model.PriceHedgingLog
	for rows.Next() {
		e := model.PriceHedgingLog{}
		if err := rows.Scan(&e.LogID, &e.FarmID, &e.ContractID, &e.ActionTaken, &e.Reasoning, &e.MarketPriceSnapshot, &e.HedgeRatioApplied, &e.CreatedAt); err != nil {
			return nil, storageError(err, "failed to scan hedging log")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "failed to iterate hedging logs")
	}
	return entries, nil
}
