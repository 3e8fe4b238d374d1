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

package ledger

import (
	"github.com/rs/zerolog"
)

func (t *Transaction) MarshalZerologObject(e *zerolog.Event) {
	e.Str("TransactionID", t.ID.String()).
		Time("Date", t.Date).
		Str("Kind", t.Kind).
		Str("Ticker", t.Ticker).
		Str("Currency", t.Currency).
		Str("Amount", t.Amount.String()).
		Str("SourceID", t.SourceID)

	if t.HoldingID.Valid {
		e.Str("HoldingID", t.HoldingID.UUID.String())
	}
	if t.Quantity.Valid {
		e.Str("Quantity", t.Quantity.Decimal.String())
	}
	if t.Price.Valid {
		e.Str("Price", t.Price.Decimal.String())
	}
	if t.Fees.Valid {
		e.Str("Fees", t.Fees.Decimal.String())
	}
	if t.RealizedGainLoss.Valid {
		e.Str("RealizedGainLoss", t.RealizedGainLoss.Decimal.String())
	}
}
