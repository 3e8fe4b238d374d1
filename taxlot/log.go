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
	"github.com/rs/zerolog"
)

func (o *Lot) MarshalZerologObject(e *zerolog.Event) {
	e.Str("LotID", o.ID.String()).
		Str("HoldingID", o.HoldingID.String()).
		Str("TransactionID", o.TransactionID.String()).
		Time("AcquiredAt", o.AcquiredAt).
		Str("Quantity", o.Quantity.String()).
		Str("Remaining", o.Remaining.String()).
		Str("CostBasis", o.CostBasis.String()).
		Str("CostPerUnit", o.CostPerUnit.String())
}

func (o *RealizedGain) MarshalZerologObject(e *zerolog.Event) {
	e.Str("TransactionID", o.TransactionID.String()).
		Str("HoldingID", o.HoldingID.String()).
		Str("Proceeds", o.Proceeds.String()).
		Str("CostBasis", o.CostBasis.String()).
		Str("GainLoss", o.GainLoss.String()).
		Int64("HoldingPeriodDays", o.HoldingPeriodDays).
		Str("Matched", o.Matched.String()).
		Str("Unmatched", o.Unmatched.String())
}
