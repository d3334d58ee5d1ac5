package agrion

import (
	"context"
	"errors"
	"testing"

	"github.com/agrion/agrion/database/mocks"
	"github.com/agrion/agrion/internal/apierror"
	"github.com/agrion/agrion/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMockedAgrion(t *testing.T) (*Agrion, *mocks.MockDataSource, *recordingSink) {
	t.Helper()
	ds := new(mocks.MockDataSource)
	sink := &recordingSink{}
	return newTestAgrionWithStore(t, ds, WithAuditSink(sink)), ds, sink
}

func TestProcessWaste_LosesClaimRace(t *testing.T) {
	a, ds, sink := newMockedAgrion(t)

	waste := &model.WasteInventory{WasteID: "waste_1", FarmID: "farm_1", WasteType: model.WasteTypeManure, QuantityKg: 10}
	ds.On("RunInTx", mock.Anything).Return(nil)
	ds.On("GetWasteForUpdate", mock.Anything, "waste_1").Return(waste, nil)
	ds.On("RecordBioEnergyOutput", mock.Anything, mock.AnythingOfType("model.BioEnergyOutput")).Return(model.BioEnergyOutput{OutputID: "out_1"}, nil)
	ds.On("MarkWasteProcessed", mock.Anything, "waste_1").Return(false, nil)

	energy, err := a.ProcessWaste(context.Background(), "waste_1")
	require.NoError(t, err)
	assert.Zero(t, energy)

	ds.AssertExpectations(t)
	ds.AssertNotCalled(t, "IncrementCredit", mock.Anything, mock.Anything, mock.Anything)
	ds.AssertNotCalled(t, "RecordAuditEvent", mock.Anything, mock.Anything)
	assert.Empty(t, sink.Events())
}

func TestProcessWaste_TransactionBeginFails(t *testing.T) {
	a, ds, _ := newMockedAgrion(t)

	ds.On("RunInTx", mock.Anything).Return(apierror.NewAPIError(apierror.ErrTransientIO, "failed to begin transaction", errors.New("connection reset")))

	_, err := a.ProcessWaste(context.Background(), "waste_1")
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrTransientIO))
	ds.AssertNotCalled(t, "GetWasteForUpdate", mock.Anything, mock.Anything)
}

func TestProcessWaste_AwardsThroughLedgerInOrder(t *testing.T) {
	a, ds, sink := newMockedAgrion(t)

	waste := &model.WasteInventory{WasteID: "waste_2", FarmID: "farm_2", WasteType: model.WasteTypeBioMass, QuantityKg: 20}
	ds.On("RunInTx", mock.Anything).Return(nil)
	ds.On("GetWasteForUpdate", mock.Anything, "waste_2").Return(waste, nil)
	ds.On("RecordBioEnergyOutput", mock.Anything, mock.MatchedBy(func(out model.BioEnergyOutput) bool {
		return out.WasteSourceID == "waste_2" && out.EnergyKwh == 10
	})).Return(model.BioEnergyOutput{OutputID: "out_2"}, nil)
	ds.On("MarkWasteProcessed", mock.Anything, "waste_2").Return(true, nil)
	ds.On("EnsureCredit", mock.Anything, "farm_2").Return(nil)
	ds.On("IncrementCredit", mock.Anything, "farm_2", mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.NewFromInt(20))
	})).Return(&model.CircularCredit{FarmID: "farm_2", TotalEarned: decimal.NewFromInt(20), AvailableBalance: decimal.NewFromInt(20)}, nil)
	ds.On("ApplySustainabilityBonus", mock.Anything, "farm_2", 0.5, 50.0, 100.0).Return(true, nil)
	ds.On("RecordAuditEvent", mock.Anything, mock.MatchedBy(func(e model.AuditEvent) bool {
		return e.Action == model.AuditWasteProcessed && e.ResourceID == "waste_2"
	})).Return(model.AuditEvent{EventID: "evt_1"}, nil)

	energy, err := a.ProcessWaste(context.Background(), "waste_2")
	require.NoError(t, err)
	assert.InDelta(t, 10.0, energy, 1e-9)
	ds.AssertExpectations(t)

	assert.Eventually(t, func() bool { return len(sink.Events()) == 1 }, testWait, testTick)
}

func TestMatchContract_LosesCompareAndSwap(t *testing.T) {
	a, ds, sink := newMockedAgrion(t)

	ds.On("RunInTx", mock.Anything).Return(nil)
	ds.On("GetForwardContract", mock.Anything, "fc_1").Return(&model.ForwardContract{ContractID: "fc_1", Status: model.ContractStatusPending}, nil).Once()
	ds.On("MatchForwardContract", mock.Anything, "fc_1", "buyer_2").Return(false, nil)

	_, err := a.MatchContract(context.Background(), "fc_1", "buyer_2")
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrInvalidState))

	ds.AssertExpectations(t)
	ds.AssertNotCalled(t, "RecordAuditEvent", mock.Anything, mock.Anything)
	assert.Empty(t, sink.Events())
}

func TestSpend_StorageFailureLeavesLedgerUntouched(t *testing.T) {
	a, ds, _ := newMockedAgrion(t)

	ds.On("RunInTx", mock.Anything).Return(nil)
	ds.On("DebitCredit", mock.Anything, "farm_1", mock.AnythingOfType("decimal.Decimal")).
		Return(false, apierror.NewAPIError(apierror.ErrTransientIO, "failed to debit credits", nil))

	_, err := a.Spend(context.Background(), "farm_1", decimal.NewFromInt(5))
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrTransientIO))
	ds.AssertNotCalled(t, "GetCredit", mock.Anything, mock.Anything)
}
