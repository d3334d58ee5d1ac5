package agrion

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/agrion/agrion/database"
	"github.com/agrion/agrion/database/memstore"
	redlock "github.com/agrion/agrion/internal/lock"
	"github.com/agrion/agrion/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wacul/ptr"
)

// flakyWasteStore fails the row lock for one waste record inside every transaction.
type flakyWasteStore struct {
	*memstore.MemStore
	failID string
}

func (s flakyWasteStore) RunInTx(ctx context.Context, fn func(tx database.Store) error) error {
	return s.MemStore.RunInTx(ctx, func(tx database.Store) error {
		return fn(flakyWasteTx{Store: tx, failID: s.failID})
	})
}

type flakyWasteTx struct {
	database.Store
	failID string
}

func (t flakyWasteTx) GetWasteForUpdate(ctx context.Context, wasteID string) (*model.WasteInventory, error) {
	if wasteID == t.failID {
		return nil, errors.New("could not serialize access due to concurrent update")
	}
	return t.Store.GetWasteForUpdate(ctx, wasteID)
}

func newRedisEngine(t *testing.T, opts ...Option) (*Agrion, *memstore.MemStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	a, store := newTestAgrion(t, append([]Option{WithRedis(client)}, opts...)...)
	return a, store, mr
}

func TestCircularEconomySync(t *testing.T) {
	a, _ := newTestAgrion(t)
	reportWaste(t, a, "farm_1", model.WasteTypeManure, 10)
	reportWaste(t, a, "farm_2", model.WasteTypeBioMass, 20)

	result, err := a.CircularEconomySync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncStatusCompleted, result.Status)
	assert.Equal(t, 2, result.ItemsProcessed)
	assert.Zero(t, result.ItemsFailed)
	assert.InDelta(t, 18.0, result.TotalEnergyKwh, 1e-9)
	assert.False(t, result.Truncated)

	again, err := a.CircularEconomySync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again.ItemsProcessed)
}

func TestCircularEconomySync_IsolatesFailingItem(t *testing.T) {
	store := flakyWasteStore{MemStore: memstore.New()}
	a := newTestAgrionWithStore(t, &store)
	bad := reportWaste(t, a, "farm_1", model.WasteTypeManure, 10)
	good := reportWaste(t, a, "farm_2", model.WasteTypeManure, 5)
	store.failID = bad.WasteID

	result, err := a.CircularEconomySync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsProcessed)
	assert.Equal(t, 1, result.ItemsFailed)
	assert.InDelta(t, 4.0, result.TotalEnergyKwh, 1e-9)

	processed, _ := store.Waste(good.WasteID)
	assert.True(t, processed.IsProcessed)
	pending, _ := store.Waste(bad.WasteID)
	assert.False(t, pending.IsProcessed)
}

func TestCircularEconomySync_TruncatesAtDeadline(t *testing.T) {
	a, store := newTestAgrion(t)
	reportWaste(t, a, "farm_1", model.WasteTypeManure, 10)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	result, err := a.CircularEconomySync(ctx)
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Zero(t, result.ItemsProcessed)
	assert.Empty(t, store.Outputs())
}

func TestCircularEconomySync_StoreFailure(t *testing.T) {
	a, store := newTestAgrion(t)
	store.FailOn("GetUnprocessedWaste", errors.New("connection refused"))

	_, err := a.CircularEconomySync(context.Background())
	assert.Error(t, err)
}

func TestSingleFlight_SkipsWhileLockHeld(t *testing.T) {
	a, _, mr := newRedisEngine(t)
	reportWaste(t, a, "farm_1", model.WasteTypeManure, 10)
	require.NoError(t, mr.Set(redlock.SingleFlightKey(TaskWasteSync), "another-run"))

	result, err := a.CircularEconomySync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncStatusSkipped, result.Status)
	assert.Zero(t, result.ItemsProcessed)

	// Other task kinds are not blocked by the held waste lock.
	scan, err := a.QuarantineScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncStatusNoActiveThreats, scan.Status)
}

func TestSingleFlight_ReleasesLockAfterRun(t *testing.T) {
	a, _, mr := newRedisEngine(t)
	reportWaste(t, a, "farm_1", model.WasteTypeManure, 10)

	result, err := a.CircularEconomySync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncStatusCompleted, result.Status)
	assert.Equal(t, 1, result.ItemsProcessed)
	assert.False(t, mr.Exists(redlock.SingleFlightKey(TaskWasteSync)))

	second, err := a.CircularEconomySync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncStatusCompleted, second.Status)
}

func TestQuarantineScan_NoActiveThreats(t *testing.T) {
	a, _ := newTestAgrion(t)

	result, err := a.QuarantineScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncStatusNoActiveThreats, result.Status)
	assert.Zero(t, result.ZonesAnalyzed)
}

func TestQuarantineScan_TraceLocksCustodyHistory(t *testing.T) {
	a, store := newTestAgrion(t)
	seedOutbreak(t, a, model.OutbreakZone{ZoneID: "5", DiseaseName: "blight"})
	seedOutbreak(t, a, model.OutbreakZone{ZoneID: "8", DiseaseName: "rust"})
	require.NoError(t, store.RunInTx(context.Background(), func(tx database.Store) error {
		return tx.UpdateOutbreakZoneStatus(context.Background(), "8", model.OutbreakStatusContained)
	}))

	store.PutSupplyBatch(model.SupplyBatch{BatchID: "batch_via_5", FarmLocation: "depot", Status: "IN_TRANSIT"})
	store.PutCustodyLog(model.CustodyLog{LogID: "log_1", BatchID: "batch_via_5", Location: "5"})
	store.PutSupplyBatch(model.SupplyBatch{BatchID: "batch_via_8", FarmLocation: "depot", Status: "IN_TRANSIT"})
	store.PutCustodyLog(model.CustodyLog{LogID: "log_2", BatchID: "batch_via_8", Location: "8"})
	store.PutSupplyBatch(model.SupplyBatch{BatchID: "batch_at_5", FarmLocation: "5", Status: "STORED"})
	store.PutCustodyLog(model.CustodyLog{LogID: "log_3", BatchID: "batch_at_5", Location: "5"})

	result, err := a.QuarantineScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncStatusProcessed, result.Status)
	assert.Equal(t, 1, result.ZonesAnalyzed)
	assert.Equal(t, int64(1), result.LockedViaTracing)

	traced, _ := store.SupplyBatch("batch_via_5")
	assert.Equal(t, model.QuarantineTraceLock, traced.QuarantineStatus)
	assert.Equal(t, model.BatchStatusQualityCheck, traced.Status)

	untouched, _ := store.SupplyBatch("batch_via_8")
	assert.Equal(t, model.QuarantineUnset, untouched.QuarantineStatus)

	// The hard red-zone lock from the re-analysis is not downgraded by the trace pass.
	hardLocked, _ := store.SupplyBatch("batch_at_5")
	assert.Equal(t, model.QuarantineRedZoneLocked, hardLocked.QuarantineStatus)
	assert.Equal(t, model.BatchStatusRejected, hardLocked.Status)

	// Already-locked batches keep their lock on the next scan.
	again, err := a.QuarantineScan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again.LockedViaTracing)
}

func TestQuarantineScan_TruncatedSkipsTracing(t *testing.T) {
	a, store := newTestAgrion(t)
	seedOutbreak(t, a, model.OutbreakZone{ZoneID: "5", DiseaseName: "blight"})
	store.PutSupplyBatch(model.SupplyBatch{BatchID: "batch_via_5", FarmLocation: "depot"})
	store.PutCustodyLog(model.CustodyLog{LogID: "log_1", BatchID: "batch_via_5", Location: "5"})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	result, err := a.QuarantineScan(ctx)
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Zero(t, result.LockedViaTracing)
	assert.Empty(t, store.Containments())
}

func TestQuarantineScan_FailingZoneIsCounted(t *testing.T) {
	a, store := newTestAgrion(t)
	seedOutbreak(t, a, model.OutbreakZone{ZoneID: "5", DiseaseName: "blight"})
	store.FailOn("RecordMigrationVector", errors.New("disk full"))

	result, err := a.QuarantineScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ZonesFailed)
	assert.Zero(t, result.ZonesAnalyzed)
}

func TestFuturesHedgingSync(t *testing.T) {
	a, store := newTestAgrion(t, WithVolatilitySource(fixedVolatility(0.3)), WithPriceSource(fixedPrice(25)))
	store.PutFarm(model.Farm{FarmID: "farm_1", HarvestReadinessIndex: 0.75})
	store.PutFarm(model.Farm{FarmID: "farm_2", HarvestReadinessIndex: 0.95, PredictedYieldKg: ptr.Float64(2000)})

	result, err := a.FuturesHedgingSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncStatusCompleted, result.Status)
	assert.Equal(t, 2, result.ContractsGenerated)
	assert.Len(t, store.Contracts(), 2)
}

func TestTaskHandlers(t *testing.T) {
	a, store := newTestAgrion(t)
	w := reportWaste(t, a, "farm_1", model.WasteTypeManure, 10)
	seedOutbreak(t, a, model.OutbreakZone{ZoneID: "5", DiseaseName: "blight"})

	payload, err := json.Marshal(WasteTaskPayload{WasteID: w.WasteID})
	require.NoError(t, err)
	require.NoError(t, a.HandleProcessWaste(context.Background(), asynq.NewTask(TaskProcessWaste, payload)))
	assert.Len(t, store.Outputs(), 1)

	payload, err = json.Marshal(OutbreakTaskPayload{ZoneID: "5"})
	require.NoError(t, err)
	require.NoError(t, a.HandleAnalyzeOutbreak(context.Background(), asynq.NewTask(TaskAnalyzeOutbreak, payload)))
	assert.Len(t, store.Containments(), 1)

	require.NoError(t, a.HandleWasteSync(context.Background(), asynq.NewTask(TaskWasteSync, nil)))
	require.NoError(t, a.HandleQuarantineScan(context.Background(), asynq.NewTask(TaskQuarantineScan, nil)))
	require.NoError(t, a.HandleHedgingSync(context.Background(), asynq.NewTask(TaskHedgingSync, nil)))

	err = a.HandleProcessWaste(context.Background(), asynq.NewTask(TaskProcessWaste, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	err = a.HandleAnalyzeOutbreak(context.Background(), asynq.NewTask(TaskAnalyzeOutbreak, []byte("nope")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
