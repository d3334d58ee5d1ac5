package memstore

import (
	"github.com/agrion/agrion/database"
	"github.com/agrion/agrion/model"
)

var _ database.Store = (*view)(nil)

// Seed helpers populate rows owned by external systems (farms, irrigation, logistics).

func (m *MemStore) PutFarm(farm model.Farm) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.st.farms {
		if m.st.farms[i].FarmID == farm.FarmID {
			m.st.farms[i] = farm
			return
		}
	}
	m.st.farms = append(m.st.farms, farm)
}

func (m *MemStore) PutIrrigationZone(zone model.IrrigationZone) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.irrigation = append(m.st.irrigation, zone)
}

func (m *MemStore) PutSupplyBatch(batch model.SupplyBatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.batches = append(m.st.batches, batch)
}

func (m *MemStore) PutCustodyLog(entry model.CustodyLog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.custody = append(m.st.custody, entry)
}

func (m *MemStore) PutSustainabilityScore(score model.SustainabilityScore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.scores = append(m.st.scores, score)
}

func (m *MemStore) PutCredit(credit model.CircularCredit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.credits = append(m.st.credits, credit)
}

func (m *MemStore) IrrigationZone(zoneID string) (model.IrrigationZone, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, z := range m.st.irrigation {
		if z.ZoneID == zoneID {
			return z, true
		}
	}
	return model.IrrigationZone{}, false
}

func (m *MemStore) SupplyBatch(batchID string) (model.SupplyBatch, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.st.batches {
		if b.BatchID == batchID {
			return b, true
		}
	}
	return model.SupplyBatch{}, false
}

func (m *MemStore) Zone(zoneID string) (model.OutbreakZone, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, z := range m.st.zones {
		if z.ZoneID == zoneID {
			return z, true
		}
	}
	return model.OutbreakZone{}, false
}

func (m *MemStore) Waste(wasteID string) (model.WasteInventory, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.st.waste {
		if w.WasteID == wasteID {
			return w, true
		}
	}
	return model.WasteInventory{}, false
}

func (m *MemStore) Score(farmID string) (model.SustainabilityScore, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.st.scores {
		if s.FarmID == farmID {
			return s, true
		}
	}
	return model.SustainabilityScore{}, false
}

func (m *MemStore) Vectors() []model.MigrationVector {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.MigrationVector(nil), m.st.vectors...)
}

func (m *MemStore) Containments() []model.BiosecurityContainment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.BiosecurityContainment(nil), m.st.containments...)
}

func (m *MemStore) Outputs() []model.BioEnergyOutput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.BioEnergyOutput(nil), m.st.outputs...)
}

func (m *MemStore) AuditEvents() []model.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AuditEvent(nil), m.st.audit...)
}

func (m *MemStore) Contracts() []model.ForwardContract {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ForwardContract(nil), m.st.contracts...)
}

func (m *MemStore) HedgingLogs() []model.PriceHedgingLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.PriceHedgingLog(nil), m.st.hedgingLogs...)
}
