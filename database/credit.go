package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/agrion/agrion/model"
	"github.com/shopspring/decimal"
)

func (q queries) EnsureCredit(ctx context.Context, farmID string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO agrion.circular_credits (farm_id, total_earned, available_balance, version, last_updated)
		VALUES ($1, 0, 0, 0, $2)
		ON CONFLICT (farm_id) DO NOTHING
	`, farmID, time.Now().UTC())
	if err != nil {
		return storageError(err, "failed to create credit ledger")
	}
	return nil
}

func (q queries) IncrementCredit(ctx context.Context, farmID string, amount decimal.Decimal) (*model.CircularCredit, error) {
	credit := model.CircularCredit{}
	err := q.db.QueryRowContext(ctx, `
		UPDATE agrion.circular_credits
		SET total_earned = total_earned + $2,
			available_balance = available_balance + $2,
			version = version + 1,
			last_updated = $3
		WHERE farm_id = $1
		RETURNING farm_id, total_earned, available_balance, version, last_updated
	`, farmID, amount, time.Now().UTC()).Scan(
		&credit.FarmID, &credit.TotalEarned, &credit.AvailableBalance, &credit.Version, &credit.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("credit ledger not found for farm " + farmID)
		}
		return nil, storageError(err, "failed to increment credit ledger")
	}
	return &credit, nil
}

func (q queries) DebitCredit(ctx context.Context, farmID string, amount decimal.Decimal) (bool, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE agrion.circular_credits
		SET available_balance = available_balance - $2,
			version = version + 1,
			last_updated = $3
		WHERE farm_id = $1 AND available_balance >= $2
	`, farmID, amount, time.Now().UTC())
	if err != nil {
		return false, storageError(err, "failed to debit credit ledger")
	}
	n, err := rowsAffected(result, "failed to debit credit ledger")
	return n == 1, err
}

func (q queries) GetCredit(ctx context.Context, farmID string) (*model.CircularCredit, error) {
	credit := model.CircularCredit{}
	err := q.db.QueryRowContext(ctx, `
		SELECT farm_id, total_earned, available_balance, version, last_updated
		FROM agrion.circular_credits
		WHERE farm_id = $1
	`, farmID).Scan(&credit.FarmID, &credit.TotalEarned, &credit.AvailableBalance, &credit.Version, &credit.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("credit ledger not found for farm " + farmID)
		}
		return nil, storageError(err, "failed to fetch credit ledger")
	}
	return &credit, nil
}

func (q queries) ApplySustainabilityBonus(ctx context.Context, farmID string, increment, baseline, ceiling float64) (bool, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE agrion.sustainability_scores
		SET biodiversity_index = LEAST($4, COALESCE(biodiversity_index, $3) + $2)
		WHERE farm_id = $1
	`, farmID, increment, baseline, ceiling)
	if err != nil {
		return false, storageError(err, "failed to apply sustainability bonus")
	}
	n, err := rowsAffected(result, "failed to apply sustainability bonus")
	return n > 0, err
}
