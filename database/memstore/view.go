package memstore

import (
	"context"
	"strings"
	"time"

	"github.com/agrion/agrion/internal/apierror"
	"github.com/agrion/agrion/model"
	"github.com/shopspring/decimal"
)

// view implements database.Store directly over a state. Callers hold the store mutex.
type view struct {
	st     *state
	faults map[string]error
}

func (v *view) fault(method string) error {
	return v.faults[method]
}

func notFound(message string) error {
	return apierror.NewAPIError(apierror.ErrNotFound, message, nil)
}

func conflict(message string) error {
	return apierror.NewAPIError(apierror.ErrConflict, message, nil)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// newestFirst returns up to limit items from the end of the slice in reverse order.
func newestFirst[T any](items []T, limit int) []T {
	out := make([]T, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, items[i])
	}
	return out
}

func (v *view) creditIndex(farmID string) int {
	for i := range v.st.credits {
		if v.st.credits[i].FarmID == farmID {
			return i
		}
	}
	return -1
}

func (v *view) EnsureCredit(ctx context.Context, farmID string) error {
	if err := v.fault("EnsureCredit"); err != nil {
		return err
	}
	if v.creditIndex(farmID) >= 0 {
		return nil
	}
	v.st.credits = append(v.st.credits, model.CircularCredit{
		FarmID:           farmID,
		TotalEarned:      decimal.Zero,
		AvailableBalance: decimal.Zero,
		LastUpdated:      time.Now().UTC(),
	})
	return nil
}

func (v *view) IncrementCredit(ctx context.Context, farmID string, amount decimal.Decimal) (*model.CircularCredit, error) {
	if err := v.fault("IncrementCredit"); err != nil {
		return nil, err
	}
	i := v.creditIndex(farmID)
	if i < 0 {
		return nil, notFound("credit ledger not found for farm " + farmID)
	}
	c := &v.st.credits[i]
	c.TotalEarned = c.TotalEarned.Add(amount)
	c.AvailableBalance = c.AvailableBalance.Add(amount)
	c.Version++
	c.LastUpdated = time.Now().UTC()
	out := *c
	return &out, nil
}

func (v *view) DebitCredit(ctx context.Context, farmID string, amount decimal.Decimal) (bool, error) {
	if err := v.fault("DebitCredit"); err != nil {
		return false, err
	}
	i := v.creditIndex(farmID)
	if i < 0 || v.st.credits[i].AvailableBalance.LessThan(amount) {
		return false, nil
	}
	c := &v.st.credits[i]
	c.AvailableBalance = c.AvailableBalance.Sub(amount)
	c.Version++
	c.LastUpdated = time.Now().UTC()
	return true, nil
}

func (v *view) GetCredit(ctx context.Context, farmID string) (*model.CircularCredit, error) {
	i := v.creditIndex(farmID)
	if i < 0 {
		return nil, notFound("credit ledger not found for farm " + farmID)
	}
	out := v.st.credits[i]
	return &out, nil
}

func (v *view) ApplySustainabilityBonus(ctx context.Context, farmID string, increment, baseline, ceiling float64) (bool, error) {
	if err := v.fault("ApplySustainabilityBonus"); err != nil {
		return false, err
	}
	for i := range v.st.scores {
		s := &v.st.scores[i]
		if s.FarmID != farmID {
			continue
		}
		next := model.Float64OrDefault(s.BiodiversityIndex, baseline) + increment
		if next > ceiling {
			next = ceiling
		}
		s.BiodiversityIndex = &next
		return true, nil
	}
	return false, nil
}

func (v *view) CreateWaste(ctx context.Context, w model.WasteInventory) (model.WasteInventory, error) {
	if err := v.fault("CreateWaste"); err != nil {
		return model.WasteInventory{}, err
	}
	if w.WasteID == "" {
		w.WasteID = model.GenerateUUIDWithSuffix("waste")
	}
	for _, existing := range v.st.waste {
		if existing.WasteID == w.WasteID {
			return model.WasteInventory{}, conflict("waste record already exists")
		}
	}
	w.IsProcessed = false
	w.CreatedAt = time.Now().UTC()
	v.st.waste = append(v.st.waste, w)
	return w, nil
}

func (v *view) GetWasteForUpdate(ctx context.Context, wasteID string) (*model.WasteInventory, error) {
	if err := v.fault("GetWasteForUpdate"); err != nil {
		return nil, err
	}
	for _, w := range v.st.waste {
		if w.WasteID == wasteID {
			out := w
			return &out, nil
		}
	}
	return nil, notFound("waste record not found: " + wasteID)
}

func (v *view) MarkWasteProcessed(ctx context.Context, wasteID string) (bool, error) {
	if err := v.fault("MarkWasteProcessed"); err != nil {
		return false, err
	}
	for i := range v.st.waste {
		if v.st.waste[i].WasteID == wasteID && !v.st.waste[i].IsProcessed {
			v.st.waste[i].IsProcessed = true
			return true, nil
		}
	}
	return false, nil
}

func (v *view) GetUnprocessedWaste(ctx context.Context, limit int) ([]model.WasteInventory, error) {
	if err := v.fault("GetUnprocessedWaste"); err != nil {
		return nil, err
	}
	out := []model.WasteInventory{}
	for _, w := range v.st.waste {
		if limit > 0 && len(out) == limit {
			break
		}
		if !w.IsProcessed {
			out = append(out, w)
		}
	}
	return out, nil
}

func (v *view) GetPendingWasteKg(ctx context.Context, farmID string) (float64, error) {
	total := 0.0
	for _, w := range v.st.waste {
		if w.FarmID == farmID && !w.IsProcessed {
			total += w.QuantityKg
		}
	}
	return total, nil
}

func (v *view) RecordBioEnergyOutput(ctx context.Context, output model.BioEnergyOutput) (model.BioEnergyOutput, error) {
	if err := v.fault("RecordBioEnergyOutput"); err != nil {
		return model.BioEnergyOutput{}, err
	}
	output.OutputID = model.GenerateUUIDWithSuffix("energy")
	output.CreatedAt = time.Now().UTC()
	v.st.outputs = append(v.st.outputs, output)
	return output, nil
}

func (v *view) GetRecentBioEnergyOutputs(ctx context.Context, farmID string, limit int) ([]model.BioEnergyOutput, error) {
	var matching []model.BioEnergyOutput
	for _, o := range v.st.outputs {
		if o.FarmID == farmID {
			matching = append(matching, o)
		}
	}
	return newestFirst(matching, limit), nil
}

func (v *view) zoneIndex(zoneID string) int {
	for i := range v.st.zones {
		if v.st.zones[i].ZoneID == zoneID {
			return i
		}
	}
	return -1
}

func (v *view) CreateOutbreakZone(ctx context.Context, zone model.OutbreakZone) (model.OutbreakZone, error) {
	if err := v.fault("CreateOutbreakZone"); err != nil {
		return model.OutbreakZone{}, err
	}
	if zone.ZoneID == "" {
		zone.ZoneID = model.GenerateUUIDWithSuffix("zone")
	}
	if v.zoneIndex(zone.ZoneID) >= 0 {
		return model.OutbreakZone{}, conflict("outbreak zone already exists: " + zone.ZoneID)
	}
	if zone.Status == "" {
		zone.Status = model.OutbreakStatusActive
	}
	zone.CreatedAt = time.Now().UTC()
	zone.UpdatedAt = zone.CreatedAt
	v.st.zones = append(v.st.zones, zone)
	return zone, nil
}

func (v *view) GetOutbreakZoneForUpdate(ctx context.Context, zoneID string) (*model.OutbreakZone, error) {
	if err := v.fault("GetOutbreakZoneForUpdate"); err != nil {
		return nil, err
	}
	i := v.zoneIndex(zoneID)
	if i < 0 {
		return nil, notFound("outbreak zone not found: " + zoneID)
	}
	out := v.st.zones[i]
	return &out, nil
}

func (v *view) GetActiveOutbreakZones(ctx context.Context) ([]model.OutbreakZone, error) {
	if err := v.fault("GetActiveOutbreakZones"); err != nil {
		return nil, err
	}
	out := []model.OutbreakZone{}
	for _, z := range v.st.zones {
		if z.Status != model.OutbreakStatusContained {
			out = append(out, z)
		}
	}
	return out, nil
}

func (v *view) UpdateOutbreakZoneStatus(ctx context.Context, zoneID, status string) error {
	if err := v.fault("UpdateOutbreakZoneStatus"); err != nil {
		return err
	}
	i := v.zoneIndex(zoneID)
	if i < 0 {
		return notFound("outbreak zone not found: " + zoneID)
	}
	v.st.zones[i].Status = status
	v.st.zones[i].UpdatedAt = time.Now().UTC()
	return nil
}

func (v *view) RecordMigrationVector(ctx context.Context, vector model.MigrationVector) (model.MigrationVector, error) {
	if err := v.fault("RecordMigrationVector"); err != nil {
		return model.MigrationVector{}, err
	}
	vector.VectorID = model.GenerateUUIDWithSuffix("vector")
	vector.CreatedAt = time.Now().UTC()
	v.st.vectors = append(v.st.vectors, vector)
	return vector, nil
}

func (v *view) GetRecentMigrationVectors(ctx context.Context, limit int) ([]model.MigrationVector, error) {
	return newestFirst(v.st.vectors, limit), nil
}

func (v *view) RecordContainment(ctx context.Context, c model.BiosecurityContainment) (model.BiosecurityContainment, error) {
	if err := v.fault("RecordContainment"); err != nil {
		return model.BiosecurityContainment{}, err
	}
	c.ContainmentID = model.GenerateUUIDWithSuffix("containment")
	c.IsActive = true
	c.DeactivatedAt = nil
	c.CreatedAt = time.Now().UTC()
	v.st.containments = append(v.st.containments, c)
	return c, nil
}

func (v *view) GetContainmentForUpdate(ctx context.Context, containmentID string) (*model.BiosecurityContainment, error) {
	if err := v.fault("GetContainmentForUpdate"); err != nil {
		return nil, err
	}
	for _, c := range v.st.containments {
		if c.ContainmentID == containmentID {
			out := c
			return &out, nil
		}
	}
	return nil, notFound("containment not found: " + containmentID)
}

func (v *view) DeactivateContainment(ctx context.Context, containmentID string) (bool, error) {
	if err := v.fault("DeactivateContainment"); err != nil {
		return false, err
	}
	for i := range v.st.containments {
		c := &v.st.containments[i]
		if c.ContainmentID == containmentID && c.IsActive {
			now := time.Now().UTC()
			c.IsActive = false
			c.DeactivatedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (v *view) GetActiveContainments(ctx context.Context) ([]model.BiosecurityContainment, error) {
	var active []model.BiosecurityContainment
	for _, c := range v.st.containments {
		if c.IsActive {
			active = append(active, c)
		}
	}
	return newestFirst(active, 0), nil
}

func (v *view) CountActiveContainments(ctx context.Context, zoneID string) (int, error) {
	if err := v.fault("CountActiveContainments"); err != nil {
		return 0, err
	}
	count := 0
	for _, c := range v.st.containments {
		if c.OutbreakZoneID == zoneID && c.IsActive {
			count++
		}
	}
	return count, nil
}

func (v *view) FindIrrigationZonesByNameContaining(ctx context.Context, term string) ([]model.IrrigationZone, error) {
	if err := v.fault("FindIrrigationZonesByNameContaining"); err != nil {
		return nil, err
	}
	out := []model.IrrigationZone{}
	for _, z := range v.st.irrigation {
		if strings.Contains(z.Name, term) {
			out = append(out, z)
		}
	}
	return out, nil
}

func (v *view) ApplyIrrigationLockdown(ctx context.Context, zoneIDs []string, concentrationPpm float64) (int64, error) {
	if err := v.fault("ApplyIrrigationLockdown"); err != nil {
		return 0, err
	}
	var n int64
	for i := range v.st.irrigation {
		z := &v.st.irrigation[i]
		if !contains(zoneIDs, z.ZoneID) {
			continue
		}
		z.PestControlMode = true
		z.FertigationEnabled = true
		z.ChemicalConcentration = concentrationPpm
		z.BiosecurityLockdown = true
		n++
	}
	return n, nil
}

func (v *view) ReleaseIrrigationLockdown(ctx context.Context, zoneIDs []string) (int64, error) {
	if err := v.fault("ReleaseIrrigationLockdown"); err != nil {
		return 0, err
	}
	var n int64
	for i := range v.st.irrigation {
		z := &v.st.irrigation[i]
		if !contains(zoneIDs, z.ZoneID) {
			continue
		}
		z.PestControlMode = false
		z.FertigationEnabled = false
		z.ChemicalConcentration = 0
		z.BiosecurityLockdown = false
		n++
	}
	return n, nil
}

func (v *view) hasCustodyAt(batchID string, locations []string) bool {
	for _, c := range v.st.custody {
		if c.BatchID == batchID && contains(locations, c.Location) {
			return true
		}
	}
	return false
}

func (v *view) LockBatchesAtLocation(ctx context.Context, location, quarantineStatus, status string) (int64, error) {
	if err := v.fault("LockBatchesAtLocation"); err != nil {
		return 0, err
	}
	var n int64
	for i := range v.st.batches {
		b := &v.st.batches[i]
		if b.FarmLocation == location {
			b.QuarantineStatus = quarantineStatus
			b.Status = status
			n++
		}
	}
	return n, nil
}

func (v *view) TraceLockBatches(ctx context.Context, locations []string, quarantineStatus, status string) (int64, error) {
	if err := v.fault("TraceLockBatches"); err != nil {
		return 0, err
	}
	var n int64
	for i := range v.st.batches {
		b := &v.st.batches[i]
		if b.QuarantineStatus == model.QuarantineUnset && v.hasCustodyAt(b.BatchID, locations) {
			b.QuarantineStatus = quarantineStatus
			b.Status = status
			n++
		}
	}
	return n, nil
}

func (v *view) ReleaseBatchesAtLocation(ctx context.Context, location, quarantineStatus, status string) (int64, error) {
	if err := v.fault("ReleaseBatchesAtLocation"); err != nil {
		return 0, err
	}
	var n int64
	for i := range v.st.batches {
		b := &v.st.batches[i]
		if b.FarmLocation == location && b.QuarantineStatus == quarantineStatus {
			b.QuarantineStatus = model.QuarantineUnset
			b.Status = status
			n++
		}
	}
	return n, nil
}

func (v *view) ReleaseTracedBatches(ctx context.Context, location string, heldBy []string, quarantineStatus, status string) (int64, error) {
	if err := v.fault("ReleaseTracedBatches"); err != nil {
		return 0, err
	}
	var n int64
	for i := range v.st.batches {
		b := &v.st.batches[i]
		if b.QuarantineStatus == quarantineStatus && v.hasCustodyAt(b.BatchID, []string{location}) && !v.hasCustodyAt(b.BatchID, heldBy) {
			b.QuarantineStatus = model.QuarantineUnset
			b.Status = status
			n++
		}
	}
	return n, nil
}

func (v *view) CreateForwardContract(ctx context.Context, contract model.ForwardContract) (model.ForwardContract, error) {
	if err := v.fault("CreateForwardContract"); err != nil {
		return model.ForwardContract{}, err
	}
	if contract.ContractID == "" {
		contract.ContractID = model.GenerateUUIDWithSuffix("contract")
	}
	if contract.Status == "" {
		contract.Status = model.ContractStatusPending
	}
	contract.Version = 0
	contract.CreatedAt = time.Now().UTC()
	v.st.contracts = append(v.st.contracts, contract)
	return contract, nil
}

func (v *view) GetForwardContract(ctx context.Context, contractID string) (*model.ForwardContract, error) {
	for _, c := range v.st.contracts {
		if c.ContractID == contractID {
			out := c
			return &out, nil
		}
	}
	return nil, notFound("forward contract not found: " + contractID)
}

func (v *view) MatchForwardContract(ctx context.Context, contractID, buyerID string) (bool, error) {
	if err := v.fault("MatchForwardContract"); err != nil {
		return false, err
	}
	for i := range v.st.contracts {
		c := &v.st.contracts[i]
		if c.ContractID == contractID && c.Status == model.ContractStatusPending {
			buyer := buyerID
			c.BuyerID = &buyer
			c.Status = model.ContractStatusMatched
			c.Version++
			return true, nil
		}
	}
	return false, nil
}

func (v *view) GetForwardContractsByFarm(ctx context.Context, farmID string) ([]model.ForwardContract, error) {
	var matching []model.ForwardContract
	for _, c := range v.st.contracts {
		if c.FarmID == farmID {
			matching = append(matching, c)
		}
	}
	return newestFirst(matching, 0), nil
}

func (v *view) RecordHedgingLog(ctx context.Context, entry model.PriceHedgingLog) (model.PriceHedgingLog, error) {
	if err := v.fault("RecordHedgingLog"); err != nil {
		return model.PriceHedgingLog{}, err
	}
	entry.LogID = model.GenerateUUIDWithSuffix("hedge")
	entry.CreatedAt = time.Now().UTC()
	v.st.hedgingLogs = append(v.st.hedgingLogs, entry)
	return entry, nil
}

func (v *view) GetRecentHedgingLogs(ctx context.Context, farmID string, limit int) ([]model.PriceHedgingLog, error) {
	var matching []model.PriceHedgingLog
	for _, l := range v.st.hedgingLogs {
		if l.FarmID == farmID {
			matching = append(matching, l)
		}
	}
	return newestFirst(matching, limit), nil
}

func (v *view) GetFarm(ctx context.Context, farmID string) (*model.Farm, error) {
	for _, f := range v.st.farms {
		if f.FarmID == farmID {
			out := f
			return &out, nil
		}
	}
	return nil, notFound("farm not found: " + farmID)
}

func (v *view) GetFarmsAboveReadiness(ctx context.Context, threshold float64) ([]model.Farm, error) {
	if err := v.fault("GetFarmsAboveReadiness"); err != nil {
		return nil, err
	}
	out := []model.Farm{}
	for _, f := range v.st.farms {
		if f.HarvestReadinessIndex > threshold {
			out = append(out, f)
		}
	}
	return out, nil
}

func (v *view) RecordAuditEvent(ctx context.Context, event model.AuditEvent) (model.AuditEvent, error) {
	if err := v.fault("RecordAuditEvent"); err != nil {
		return model.AuditEvent{}, err
	}
	event.EventID = model.GenerateUUIDWithSuffix("audit")
	event.CreatedAt = time.Now().UTC()
	v.st.audit = append(v.st.audit, event)
	return event, nil
}
