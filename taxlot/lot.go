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

package taxlot

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lot records a single acquisition and how much of it remains unsold. Lots
// are never deleted; a fully consumed lot stays in the table with a remaining
// quantity of zero so that backfills can be re-run without re-creating it.
type Lot struct {
	ID            uuid.UUID
	HoldingID     uuid.UUID
	TransactionID uuid.UUID
	Quantity      decimal.Decimal
	Remaining     decimal.Decimal
	CostBasis     decimal.Decimal
	CostPerUnit   decimal.Decimal
	AcquiredAt    time.Time
}

// RealizedGain is the result of consuming lots for a single SELL transaction
type RealizedGain struct {
	TransactionID     uuid.UUID
	HoldingID         uuid.UUID
	Proceeds          decimal.Decimal
	CostBasis         decimal.Decimal
	GainLoss          decimal.Decimal
	HoldingPeriodDays int64

	// Matched is the share quantity covered by available lots; Unmatched is
	// the oversold remainder that could not be linked to any lot and carries
	// no cost basis
	Matched   decimal.Decimal
	Unmatched decimal.Decimal
}

// Oversold reports whether part of the sale could not be matched to a lot
func (rg *RealizedGain) Oversold() bool {
	return rg.Unmatched.IsPositive()
}
