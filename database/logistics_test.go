package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/agrion/agrion/internal/apierror"
	"github.com/agrion/agrion/model"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReleaseBatches(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("SET quarantine_status = '', status = $3 WHERE farm_location = $1 AND quarantine_status = $2")).
		WithArgs("5", model.QuarantineRedZoneLocked, model.BatchStatusQualityCheck).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("AND NOT EXISTS ( SELECT 1 FROM agrion.custody_logs c WHERE c.batch_id = b.batch_id AND c.location = ANY($4)")).
		WithArgs("5", model.QuarantineTraceLock, model.BatchStatusQualityCheck, pq.Array([]string{"9"})).
		WillReturnResult(sqlmock.NewResult(0, 1))

	released, err := ds.ReleaseBatchesAtLocation(context.Background(), "5", model.QuarantineRedZoneLocked, model.BatchStatusQualityCheck)
	require.NoError(t, err)
	assert.Equal(t, int64(2), released)

	traced, err := ds.ReleaseTracedBatches(context.Background(), "5", []string{"9"}, model.QuarantineTraceLock, model.BatchStatusQualityCheck)
	require.NoError(t, err)
	assert.Equal(t, int64(1), traced)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTraceLockBatches_NoLocations(t *testing.T) {
	ds, mock := newMockDatasource(t)

	traced, err := ds.TraceLockBatches(context.Background(), nil, model.QuarantineTraceLock, model.BatchStatusQualityCheck)
	require.NoError(t, err)
	assert.Zero(t, traced)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseIrrigationLockdown(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("SET pest_control_mode = FALSE")).
		WithArgs(pq.Array([]string{"irr_1", "irr_2"})).
		WillReturnResult(sqlmock.NewResult(0, 2))

	released, err := ds.ReleaseIrrigationLockdown(context.Background(), []string{"irr_1", "irr_2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), released)

	released, err = ds.ReleaseIrrigationLockdown(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockBatchesAtLocation_DriverErrorIsTransient(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE agrion.supply_batches")).
		WillReturnError(errors.New("connection reset by peer"))

	_, err := ds.LockBatchesAtLocation(context.Background(), "5", model.QuarantineRedZoneLocked, model.BatchStatusRejected)
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrTransientIO))
}

func TestGetFarm(t *testing.T) {
	ds, mock := newMockDatasource(t)
	name := gofakeit.Company()
	harvest := time.Now().Add(14 * 24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("FROM agrion.farms WHERE farm_id = $1")).
		WithArgs("farm_1").
		WillReturnRows(sqlmock.NewRows([]string{"farm_id", "name", "location", "harvest_readiness_index", "predicted_yield_kg", "predicted_harvest_date"}).
			AddRow("farm_1", name, "5", 0.8, 900.0, harvest))
	mock.ExpectQuery(regexp.QuoteMeta("FROM agrion.farms WHERE farm_id = $1")).
		WithArgs("farm_missing").
		WillReturnRows(sqlmock.NewRows([]string{"farm_id", "name", "location", "harvest_readiness_index", "predicted_yield_kg", "predicted_harvest_date"}))

	farm, err := ds.GetFarm(context.Background(), "farm_1")
	require.NoError(t, err)
	assert.Equal(t, name, farm.Name)
	assert.Equal(t, 900.0, *farm.PredictedYieldKg)
	assert.WithinDuration(t, harvest, *farm.PredictedHarvestDate, time.Second)

	_, err = ds.GetFarm(context.Background(), "farm_missing")
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForwardContractsByFarm(t *testing.T) {
	ds, mock := newMockDatasource(t)
	now := time.Now()
	columns := []string{"contract_id", "farm_id", "buyer_id", "crop_type", "quantity_kg", "locked_price_per_kg", "delivery_deadline",
		"status", "hedge_ratio", "volatility_at_creation", "version", "created_at"}

	mock.ExpectQuery(regexp.QuoteMeta("FROM agrion.forward_contracts WHERE farm_id = $1 ORDER BY created_at DESC")).
		WithArgs("farm_1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("fc_2", "farm_1", "buyer_1", "Grains", 700.0, 25.0, now, model.ContractStatusMatched, 0.7, 0.3, 2, now).
			AddRow("fc_1", "farm_1", nil, "Grains", 500.0, 22.5, now, model.ContractStatusPending, 0.5, 0.5, 1, now.Add(-time.Hour)))

	contracts, err := ds.GetForwardContractsByFarm(context.Background(), "farm_1")
	require.NoError(t, err)
	require.Len(t, contracts, 2)
	assert.Equal(t, "buyer_1", *contracts[0].BuyerID)
	assert.Nil(t, contracts[1].BuyerID)
	assert.Equal(t, model.ContractStatusPending, contracts[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
