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
	"fmt"

	"github.com/agrion/agrion/database"
	"github.com/agrion/agrion/internal/apierror"
	"github.com/agrion/agrion/model"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var creditTracer = otel.Tracer("agrion.credits")

// awardCredits adds amount to the farm's ledger inside tx, creating the ledger on first use,
// and applies the sustainability bonus to the farm's linked score.
func (a *Agrion) awardCredits(ctx context.Context, tx database.Store, farmID string, amount decimal.Decimal) (*model.CircularCredit, error) {
	ctx, span := creditTracer.Start(ctx, "AwardCredits")
	defer span.End()

	if amount.IsNegative() {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "credit award must not be negative", nil)
	}

	if err := tx.EnsureCredit(ctx, farmID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	credit, err := tx.IncrementCredit(ctx, farmID, amount)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	policy := a.cfg.Credit
	if _, err := tx.ApplySustainabilityBonus(ctx, farmID, policy.SustainabilityBonus, policy.BaselineIndex, policy.SustainabilityCap); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("farm.id", farmID), attribute.String("credits.awarded", amount.String()))
	return credit, nil
}

// Spend debits amount from the farm's available balance. The balance is left unchanged when
// the ledger is missing or does not cover amount.
func (a *Agrion) Spend(ctx context.Context, farmID string, amount decimal.Decimal) (*model.CircularCredit, error) {
	ctx, span := creditTracer.Start(ctx, "Spend")
	defer span.End()

	if !amount.IsPositive() {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "spend amount must be positive", nil)
	}

	var (
		credit *model.CircularCredit
		staged []model.AuditEvent
	)
	err := a.datasource.RunInTx(ctx, func(tx database.Store) error {
		debited, err := tx.DebitCredit(ctx, farmID, amount)
		if err != nil {
			return err
		}
		if !debited {
			return apierror.NewAPIError(apierror.ErrInsufficientBalance,
				fmt.Sprintf("insufficient circular credits for farm %s", farmID), nil)
		}

		credit, err = tx.GetCredit(ctx, farmID)
		if err != nil {
			return err
		}

		return stageAudit(ctx, tx, &staged, model.AuditEvent{
			ActorID:      farmID,
			Action:       model.AuditCreditsSpent,
			ResourceType: model.ResourceCircularCredit,
			ResourceID:   farmID,
			Details:      fmt.Sprintf("Spent %s circular credits", amount.String()),
			RiskLevel:    model.RiskLow,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	a.dispatchAudit(ctx, staged)
	a.sendWebhook(ctx, EventCreditsSpent, map[string]interface{}{"farm_id": farmID, "amount": amount, "credit": credit})
	return credit, nil
}

// GetCredit returns the farm's ledger, or a zero ledger when the farm has never earned credits.
func (a *Agrion) GetCredit(ctx context.Context, farmID string) (*model.CircularCredit, error) {
	credit, err := a.datasource.GetCredit(ctx, farmID)
	if apierror.Is(err, apierror.ErrNotFound) {
		return &model.CircularCredit{FarmID: farmID, TotalEarned: decimal.Zero, AvailableBalance: decimal.Zero}, nil
	}
	return credit, err
}
