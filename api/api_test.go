package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agrion/agrion"
	"github.com/agrion/agrion/api/middleware"
	model2 "github.com/agrion/agrion/api/model"
	"github.com/agrion/agrion/config"
	"github.com/agrion/agrion/database/memstore"
	"github.com/agrion/agrion/internal/request"
	"github.com/agrion/agrion/model"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wacul/ptr"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	if s.Response == nil {
		return resp, nil
	}
	err := json.NewDecoder(resp.Body).Decode(s.Response)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func setupRouter(t *testing.T, cnf *config.Configuration) (*gin.Engine, *memstore.MemStore) {
	t.Helper()
	config.MockConfig(cnf)

	store := memstore.New()
	engine, err := agrion.NewAgrion(store,
		agrion.WithVolatilitySource(agrion.VolatilityFunc(func(context.Context, model.Farm) (float64, error) { return 0.3, nil })),
		agrion.WithPriceSource(agrion.PriceFunc(func(context.Context, string) (float64, error) { return 25, nil })),
	)
	require.NoError(t, err)

	newApi := NewAPI(engine)
	require.NotNil(t, newApi)
	return newApi.Router(), store
}

func jsonBody(t *testing.T, payload interface{}) io.Reader {
	t.Helper()
	body, err := request.ToJsonReq(payload)
	require.NoError(t, err)
	return body
}

func TestHealthRoute(t *testing.T) {
	router, _ := setupRouter(t, &config.Configuration{})

	var response string
	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: http.MethodGet, Route: "/", Response: &response})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "server running...", response)
}

func TestCircularRoutes(t *testing.T) {
	router, _ := setupRouter(t, &config.Configuration{})
	farmID := gofakeit.UUID()

	var waste model.WasteInventory
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Method:   http.MethodPost,
		Route:    "/circular/report-waste",
		Payload:  jsonBody(t, model2.ReportWaste{FarmID: farmID, WasteType: "manure", QuantityKg: 10}),
		Response: &waste,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.NotEmpty(t, waste.WasteID)
	assert.Equal(t, model.WasteTypeManure, waste.WasteType)

	var processed struct {
		WasteID   string  `json:"waste_id"`
		EnergyKwh float64 `json:"energy_kwh"`
	}
	resp, err = SetUpTestRequest(TestRequest{
		Router:   router,
		Method:   http.MethodPost,
		Route:    "/circular/waste/" + waste.WasteID + "/process",
		Response: &processed,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.InDelta(t, 8.0, processed.EnergyKwh, 1e-9)

	var dashboard model.CircularDashboard
	resp, err = SetUpTestRequest(TestRequest{
		Router:   router,
		Method:   http.MethodGet,
		Route:    "/circular/dashboard/" + farmID,
		Response: &dashboard,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "16", dashboard.Credit.TotalEarned.String())
	assert.Len(t, dashboard.RecentProduction, 1)
	assert.Zero(t, dashboard.PendingWasteKg)

	var credit model.CircularCredit
	resp, err = SetUpTestRequest(TestRequest{
		Router:   router,
		Method:   http.MethodPost,
		Route:    "/circular/spend-credits",
		Payload:  jsonBody(t, model2.SpendCredits{FarmID: farmID, Amount: "6"}),
		Response: &credit,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "10", credit.AvailableBalance.String())
	assert.Equal(t, "16", credit.TotalEarned.String())

	resp, err = SetUpTestRequest(TestRequest{
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/circular/spend-credits",
		Payload: jsonBody(t, model2.SpendCredits{FarmID: farmID, Amount: "100"}),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp, err = SetUpTestRequest(TestRequest{
		Router:   router,
		Method:   http.MethodGet,
		Route:    "/circular/credits/" + farmID,
		Response: &credit,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "10", credit.AvailableBalance.String())
}

func TestCircularRoutes_RejectsInvalidInput(t *testing.T) {
	router, _ := setupRouter(t, &config.Configuration{})

	tests := []struct {
		name         string
		route        string
		payload      io.Reader
		expectedCode int
	}{
		{name: "Malformed JSON", route: "/circular/report-waste", payload: strings.NewReader("{"), expectedCode: http.StatusBadRequest},
		{name: "Missing farm", route: "/circular/report-waste", payload: jsonBody(t, model2.ReportWaste{QuantityKg: 3}), expectedCode: http.StatusBadRequest},
		{name: "Zero quantity", route: "/circular/report-waste", payload: jsonBody(t, model2.ReportWaste{FarmID: "farm_1"}), expectedCode: http.StatusBadRequest},
		{name: "Negative spend", route: "/circular/spend-credits", payload: jsonBody(t, model2.SpendCredits{FarmID: "farm_1", Amount: "-1"}), expectedCode: http.StatusBadRequest},
		{name: "Spend without ledger", route: "/circular/spend-credits", payload: jsonBody(t, model2.SpendCredits{FarmID: "farm_unknown", Amount: "1"}), expectedCode: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := SetUpTestRequest(TestRequest{Router: router, Method: http.MethodPost, Route: tt.route, Payload: tt.payload})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCode, resp.Code)
		})
	}
}

func TestBiosecurityRoutes(t *testing.T) {
	router, store := setupRouter(t, &config.Configuration{})
	store.PutIrrigationZone(model.IrrigationZone{ZoneID: "irr_1", Name: "north blight field", FertigationEnabled: true})
	store.PutSupplyBatch(model.SupplyBatch{BatchID: "batch_1", FarmLocation: "7", Status: "IN_TRANSIT"})

	var zone model.OutbreakZone
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Method:   http.MethodPost,
		Route:    "/outbreaks",
		Payload:  jsonBody(t, model2.ReportOutbreak{ZoneID: "7", DiseaseName: "blight", WindVectorDeg: ptr.Float64(0), PropagationVelocity: ptr.Float64(12)}),
		Response: &zone,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "7", zone.ZoneKey)

	var analyzed struct {
		Analyzed bool `json:"analyzed"`
	}
	resp, err = SetUpTestRequest(TestRequest{Router: router, Method: http.MethodPost, Route: "/outbreaks/7/analyze", Response: &analyzed})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, analyzed.Analyzed)

	var monitor model.ThreatMonitor
	resp, err = SetUpTestRequest(TestRequest{Router: router, Method: http.MethodGet, Route: "/biosecurity/threat-monitor", Response: &monitor})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, monitor.ActiveOutbreaks, 1)
	assert.Len(t, monitor.PredictedVectors, 1)

	var containments []model.BiosecurityContainment
	resp, err = SetUpTestRequest(TestRequest{Router: router, Method: http.MethodGet, Route: "/biosecurity/containment-status", Response: &containments})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, containments, 1)

	overrideRoute := "/biosecurity/containments/" + containments[0].ContainmentID + "/override"
	var result agrion.OverrideResult
	resp, err = SetUpTestRequest(TestRequest{
		Router:   router,
		Method:   http.MethodPost,
		Route:    overrideRoute,
		Payload:  jsonBody(t, model2.OverrideContainment{ActorID: "agronomist_4"}),
		Response: &result,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, result.Lifted)
	assert.Equal(t, int64(1), result.IrrigationReleased)
	assert.Equal(t, int64(1), result.BatchesReleased)

	resp, err = SetUpTestRequest(TestRequest{Router: router, Method: http.MethodPost, Route: overrideRoute})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp, err = SetUpTestRequest(TestRequest{Router: router, Method: http.MethodPost, Route: "/biosecurity/containments/missing/override"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp, err = SetUpTestRequest(TestRequest{
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/outbreaks",
		Payload: jsonBody(t, model2.ReportOutbreak{ZoneID: "8", DiseaseName: "rust", WindVectorDeg: ptr.Float64(400)}),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestFuturesRoutes(t *testing.T) {
	router, store := setupRouter(t, &config.Configuration{})
	store.PutFarm(model.Farm{FarmID: "farm_1", Name: "Ridge", HarvestReadinessIndex: 0.9, PredictedYieldKg: ptr.Float64(1000)})

	var sweep agrion.HedgingSweepResult
	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: http.MethodPost, Route: "/futures/hedging-sweep", Response: &sweep})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, sweep.ContractsGenerated)

	var dashboard model.FuturesDashboard
	resp, err = SetUpTestRequest(TestRequest{Router: router, Method: http.MethodGet, Route: "/futures/dashboard/farm_1", Response: &dashboard})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, dashboard.Contracts, 1)
	assert.Len(t, dashboard.HedgingLog, 1)

	matchRoute := "/futures/contracts/" + dashboard.Contracts[0].ContractID + "/match"
	var contract model.ForwardContract
	resp, err = SetUpTestRequest(TestRequest{
		Router:   router,
		Method:   http.MethodPost,
		Route:    matchRoute,
		Payload:  jsonBody(t, model2.MatchContract{BuyerID: "buyer_1"}),
		Response: &contract,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, model.ContractStatusMatched, contract.Status)

	resp, err = SetUpTestRequest(TestRequest{Router: router, Method: http.MethodPost, Route: matchRoute, Payload: jsonBody(t, model2.MatchContract{BuyerID: "buyer_2"})})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp, err = SetUpTestRequest(TestRequest{Router: router, Method: http.MethodPost, Route: matchRoute, Payload: jsonBody(t, model2.MatchContract{})})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp, err = SetUpTestRequest(TestRequest{Router: router, Method: http.MethodGet, Route: "/futures/dashboard/farm_unknown"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRunSyncRoute(t *testing.T) {
	router, store := setupRouter(t, &config.Configuration{})
	store.PutFarm(model.Farm{FarmID: "farm_1", HarvestReadinessIndex: 0.9, PredictedYieldKg: ptr.Float64(100)})

	var waste agrion.WasteSyncResult
	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: http.MethodPost, Route: "/sync/waste", Response: &waste})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, agrion.SyncStatusCompleted, waste.Status)

	var scan agrion.QuarantineScanResult
	resp, err = SetUpTestRequest(TestRequest{Router: router, Method: http.MethodPost, Route: "/sync/quarantine", Response: &scan})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, agrion.SyncStatusNoActiveThreats, scan.Status)

	var hedging agrion.HedgingSyncResult
	resp, err = SetUpTestRequest(TestRequest{Router: router, Method: http.MethodPost, Route: "/sync/hedging", Response: &hedging})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, hedging.ContractsGenerated)

	resp, err = SetUpTestRequest(TestRequest{Router: router, Method: http.MethodPost, Route: "/sync/reindex"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSecureMode(t *testing.T) {
	router, _ := setupRouter(t, &config.Configuration{Server: config.ServerConfig{Secure: true, SecretKey: "field-key"}})

	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: http.MethodGet, Route: "/biosecurity/containment-status"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp, err = SetUpTestRequest(TestRequest{
		Router: router,
		Method: http.MethodGet,
		Route:  "/biosecurity/containment-status",
		Header: map[string]string{middleware.SecretKeyHeader: "field-key"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
}
