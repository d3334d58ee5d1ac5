package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/agrion/agrion/internal/apierror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDatasource(t *testing.T) (*Datasource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDatasource(db), mock
}

func TestEnsureCredit(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO agrion.circular_credits")).
		WithArgs("farm_1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := ds.EnsureCredit(context.Background(), "farm_1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementCredit(t *testing.T) {
	ds, mock := newMockDatasource(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE agrion.circular_credits SET total_earned = total_earned + $2")).
		WithArgs("farm_1", decimal.NewFromInt(16), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"farm_id", "total_earned", "available_balance", "version", "last_updated"}).
			AddRow("farm_1", "16", "16", 1, now))

	credit, err := ds.IncrementCredit(context.Background(), "farm_1", decimal.NewFromInt(16))
	require.NoError(t, err)
	assert.True(t, credit.TotalEarned.Equal(decimal.NewFromInt(16)))
	assert.True(t, credit.AvailableBalance.Equal(decimal.NewFromInt(16)))
	assert.Equal(t, int64(1), credit.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementCredit_MissingLedger(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE agrion.circular_credits")).
		WithArgs("farm_x", decimal.NewFromInt(4), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"farm_id", "total_earned", "available_balance", "version", "last_updated"}))

	_, err := ds.IncrementCredit(context.Background(), "farm_x", decimal.NewFromInt(4))
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}

func TestDebitCredit(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("WHERE farm_id = $1 AND available_balance >= $2")).
		WithArgs("farm_1", decimal.NewFromInt(10), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := ds.DebitCredit(context.Background(), "farm_1", decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(regexp.QuoteMeta("WHERE farm_id = $1 AND available_balance >= $2")).
		WithArgs("farm_1", decimal.NewFromInt(1000), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = ds.DebitCredit(context.Background(), "farm_1", decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCredit_NotFound(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM agrion.circular_credits")).
		WithArgs("farm_9").
		WillReturnRows(sqlmock.NewRows([]string{"farm_id", "total_earned", "available_balance", "version", "last_updated"}))

	credit, err := ds.GetCredit(context.Background(), "farm_9")
	assert.Nil(t, credit)
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}

func TestGetCredit_DriverErrorIsTransient(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM agrion.circular_credits")).
		WithArgs("farm_1").
		WillReturnError(errors.New("connection reset by peer"))

	_, err := ds.GetCredit(context.Background(), "farm_1")
	assert.True(t, apierror.Is(err, apierror.ErrTransientIO))
}

func TestApplySustainabilityBonus(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("SET biodiversity_index = LEAST($4, COALESCE(biodiversity_index, $3) + $2)")).
		WithArgs("farm_1", 0.5, 50.0, 100.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := ds.ApplySustainabilityBonus(context.Background(), "farm_1", 0.5, 50.0, 100.0)
	require.NoError(t, err)
	assert.True(t, applied)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE agrion.sustainability_scores")).
		WithArgs("farm_2", 0.5, 50.0, 100.0).
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err = ds.ApplySustainabilityBonus(context.Background(), "farm_2", 0.5, 50.0, 100.0)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}
