package database

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/agrion/agrion/internal/apierror"
	"github.com/agrion/agrion/model"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wacul/ptr"
)

var zoneColumns = []string{"zone_id", "status", "disease_name", "zone_key", "wind_vector_deg", "propagation_velocity", "created_at", "updated_at"}

func TestCreateOutbreakZone(t *testing.T) {
	ds, mock := newMockDatasource(t)

	zone := model.OutbreakZone{ZoneID: "5", DiseaseName: "blight", ZoneKey: "5", WindVectorDeg: ptr.Float64(200)}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO agrion.outbreak_zones")).
		WithArgs("5", model.OutbreakStatusActive, "blight", "5", 200.0, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := ds.CreateOutbreakZone(context.Background(), zone)
	require.NoError(t, err)
	assert.Equal(t, model.OutbreakStatusActive, created.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOutbreakZoneForUpdate(t *testing.T) {
	ds, mock := newMockDatasource(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM agrion.outbreak_zones WHERE zone_id = $1 FOR UPDATE")).
		WithArgs("5").
		WillReturnRows(sqlmock.NewRows(zoneColumns).AddRow("5", "active", "blight", "5", 200.0, nil, now, now))

	zone, err := ds.GetOutbreakZoneForUpdate(context.Background(), "5")
	require.NoError(t, err)
	require.NotNil(t, zone.WindVectorDeg)
	assert.Equal(t, 200.0, *zone.WindVectorDeg)
	assert.Nil(t, zone.PropagationVelocity)

	mock.ExpectQuery(regexp.QuoteMeta("FROM agrion.outbreak_zones")).
		WithArgs("404").
		WillReturnRows(sqlmock.NewRows(zoneColumns))

	_, err = ds.GetOutbreakZoneForUpdate(context.Background(), "404")
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveOutbreakZones(t *testing.T) {
	ds, mock := newMockDatasource(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status <> $1")).
		WithArgs(model.OutbreakStatusContained).
		WillReturnRows(sqlmock.NewRows(zoneColumns).
			AddRow("5", "active", "blight", "5", nil, 0.7, now, now).
			AddRow("6", "active", "rust", "6", nil, nil, now, now))

	zones, err := ds.GetActiveOutbreakZones(context.Background())
	require.NoError(t, err)
	assert.Len(t, zones, 2)
	assert.Equal(t, 0.7, *zones[0].PropagationVelocity)
}

func TestUpdateOutbreakZoneStatus(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE agrion.outbreak_zones SET status = $2")).
		WithArgs("5", model.OutbreakStatusContained, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, ds.UpdateOutbreakZoneStatus(context.Background(), "5", model.OutbreakStatusContained))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE agrion.outbreak_zones")).
		WithArgs("9", model.OutbreakStatusContained, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := ds.UpdateOutbreakZoneStatus(context.Background(), "9", model.OutbreakStatusContained)
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}

func TestRecordMigrationVectorAndContainment(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO agrion.migration_vectors")).
		WithArgs(sqlmock.AnyArg(), "5", 200.0, 0.7, 0.92, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO agrion.biosecurity_containments")).
		WithArgs(sqlmock.AnyArg(), "5", model.BlockadeBatchLockFertigationOn, model.QuarantineLevelCritical, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	vector, err := ds.RecordMigrationVector(context.Background(), model.MigrationVector{
		OutbreakZoneID: "5", DirectionDeg: 200, SpeedKmh: 0.7, ProbabilityScore: 0.92,
	})
	require.NoError(t, err)
	assert.Contains(t, vector.VectorID, "vector_")

	containment, err := ds.RecordContainment(context.Background(), model.BiosecurityContainment{
		OutbreakZoneID:  "5",
		BlockadeType:    model.BlockadeBatchLockFertigationOn,
		QuarantineLevel: model.QuarantineLevelCritical,
	})
	require.NoError(t, err)
	assert.True(t, containment.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateContainment(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("WHERE containment_id = $1 AND is_active = TRUE")).
		WithArgs("containment_1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := ds.DeactivateContainment(context.Background(), "containment_1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCountActiveContainments(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM agrion.biosecurity_containments")).
		WithArgs("5").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := ds.CountActiveContainments(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestApplyIrrigationLockdown(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("SET pest_control_mode = TRUE, fertigation_enabled = TRUE, chemical_concentration = $2, biosecurity_lockdown = TRUE")).
		WithArgs(pq.Array([]string{"irr_1", "irr_2"}), 200.0).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := ds.ApplyIrrigationLockdown(context.Background(), []string{"irr_1", "irr_2"}, 200.0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = ds.ApplyIrrigationLockdown(context.Background(), nil, 200.0)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindIrrigationZonesByNameContaining(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE name LIKE '%' || $1 || '%'")).
		WithArgs("blight").
		WillReturnRows(sqlmock.NewRows([]string{"zone_id", "name", "farm_id", "pest_control_mode", "fertigation_enabled", "chemical_concentration", "biosecurity_lockdown"}).
			AddRow("irr_1", "North blight buffer", "farm_1", false, false, 0.0, false))

	zones, err := ds.FindIrrigationZonesByNameContaining(context.Background(), "blight")
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "irr_1", zones[0].ZoneID)
}

func TestLockAndTraceBatches(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE agrion.supply_batches SET quarantine_status = $2, status = $3 WHERE farm_location = $1")).
		WithArgs("5", model.QuarantineRedZoneLocked, model.BatchStatusRejected).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("WHERE b.quarantine_status = '' AND EXISTS")).
		WithArgs(pq.Array([]string{"5"}), model.QuarantineTraceLock, model.BatchStatusQualityCheck).
		WillReturnResult(sqlmock.NewResult(0, 1))

	locked, err := ds.LockBatchesAtLocation(context.Background(), "5", model.QuarantineRedZoneLocked, model.BatchStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, int64(3), locked)

	traced, err := ds.TraceLockBatches(context.Background(), []string{"5"}, model.QuarantineTraceLock, model.BatchStatusQualityCheck)
	require.NoError(t, err)
	assert.Equal(t, int64(1), traced)
	assert.NoError(t, mock.ExpectationsWereMet())
}
