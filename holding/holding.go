// Copyright 2025-2026
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package holding

import (
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	ErrHoldingNotFound = errors.New("could not find holding ID in database")
)

// Holding is the derived position aggregate used for live valuation. Its
// quantity and cost basis are a weighted-average approximation recomputed
// wholesale from the ledger; exact, fee-inclusive cost basis lives in the
// tax-lot table and the two are intentionally separate.
type Holding struct {
	ID             uuid.UUID       `json:"id"`
	AccountID      uuid.UUID       `json:"account_id"`
	Ticker         string          `json:"ticker"`
	Quantity       decimal.Decimal `json:"quantity"`
	CostBasis      decimal.Decimal `json:"cost_basis"`
	AvgCostPerUnit decimal.Decimal `json:"avg_cost_per_unit"`
}

func (o *Holding) MarshalZerologObject(e *zerolog.Event) {
	e.Str("HoldingID", o.ID.String()).
		Str("AccountID", o.AccountID.String()).
		Str("Ticker", o.Ticker).
		Str("Quantity", o.Quantity.String()).
		Str("CostBasis", o.CostBasis.String()).
		Str("AvgCostPerUnit", o.AvgCostPerUnit.String())
}
