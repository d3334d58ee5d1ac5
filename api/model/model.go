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
package model

import (
	"errors"
	"strings"

	"github.com/agrion/agrion/model"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

type ReportWaste struct {
	FarmID     string  `json:"farm_id"`
	WasteType  string  `json:"waste_type"`
	QuantityKg float64 `json:"quantity_kg"`
}

type SpendCredits struct {
	FarmID string `json:"farm_id"`
	Amount string `json:"amount"`
}

type ReportOutbreak struct {
	ZoneID              string   `json:"zone_id"`
	ZoneKey             string   `json:"zone_key"`
	DiseaseName         string   `json:"disease_name"`
	WindVectorDeg       *float64 `json:"wind_vector_deg"`
	PropagationVelocity *float64 `json:"propagation_velocity"`
}

type MatchContract struct {
	BuyerID string `json:"buyer_id"`
}

type OverrideContainment struct {
	ActorID string `json:"actor_id"`
}

func positiveDecimal(value interface{}) error {
	s, _ := value.(string)
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return errors.New("must be a decimal number")
	}
	if !amount.IsPositive() {
		return errors.New("must be greater than zero")
	}
	return nil
}

func (r *ReportWaste) ValidateReportWaste() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.FarmID, validation.Required),
		validation.Field(&r.QuantityKg, validation.Required, validation.Min(0.0).Exclusive()),
	)
}

func (r *ReportWaste) ToWasteInventory() model.WasteInventory {
	return model.WasteInventory{
		FarmID:     r.FarmID,
		WasteType:  r.WasteType,
		QuantityKg: r.QuantityKg,
	}
}

func (s *SpendCredits) ValidateSpendCredits() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.FarmID, validation.Required),
		validation.Field(&s.Amount, validation.Required, validation.By(positiveDecimal)),
	)
}

// AmountDecimal must only be called after ValidateSpendCredits succeeded.
func (s *SpendCredits) AmountDecimal() decimal.Decimal {
	return decimal.RequireFromString(strings.TrimSpace(s.Amount))
}

func (o *ReportOutbreak) ValidateReportOutbreak() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.DiseaseName, validation.Required),
		validation.Field(&o.WindVectorDeg, validation.Min(0.0), validation.Max(360.0)),
		validation.Field(&o.PropagationVelocity, validation.Min(0.0)),
	)
}

func (o *ReportOutbreak) ToOutbreakZone() model.OutbreakZone {
	return model.OutbreakZone{
		ZoneID:              o.ZoneID,
		ZoneKey:             o.ZoneKey,
		DiseaseName:         o.DiseaseName,
		WindVectorDeg:       o.WindVectorDeg,
		PropagationVelocity: o.PropagationVelocity,
	}
}

func (m *MatchContract) ValidateMatchContract() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.BuyerID, validation.Required),
	)
}
