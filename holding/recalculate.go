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
	"context"

	"github.com/finfolio/ff-api/ledger"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Recalculate rebuilds a holding's derived position from the ledger. Every
// transaction of the holding is replayed in ascending economic-date order
// starting from zero, so invoking it repeatedly with an unchanged ledger
// always produces the same result.
//
// Sales remove cost proportionally at the weighted-average cost per unit in
// effect before the sale. That is deliberately simpler than the tax-lot
// engine's FIFO consumption: this aggregate feeds live valuation displays
// while the lot table feeds tax reporting.
//
// NOTE: SPLIT multiplies the position quantity by the ratio carried in the
// transaction's quantity field but tax lots are never adjusted for splits, so
// per-lot cost-per-unit diverges from the post-split position until the lots
// are rebuilt.
func Recalculate(ctx context.Context, userID string, holdingID uuid.UUID) (*Holding, error) {
	subLog := log.With().Str("UserID", userID).Str("HoldingID", holdingID.String()).Logger()

	h, err := Get(ctx, userID, holdingID)
	if err != nil {
		return nil, err
	}

	transactions, err := ledger.ForHolding(ctx, userID, holdingID)
	if err != nil {
		return nil, err
	}

	quantity := decimal.Zero
	totalCost := decimal.Zero

	for _, t := range transactions {
		switch t.Kind {
		case ledger.BuyTransaction, ledger.TransferInTransaction, ledger.ReinvestDividendTransaction:
			if !t.Quantity.Valid {
				subLog.Warn().Object("Transaction", t).Msg("acquisition transaction is missing quantity; position will drift")
				continue
			}
			quantity = quantity.Add(t.Quantity.Decimal)
			if t.Quantity.Decimal.IsPositive() && t.Price.Valid && t.Price.Decimal.IsPositive() {
				totalCost = totalCost.Add(t.Quantity.Decimal.Mul(t.Price.Decimal))
			}
		case ledger.SellTransaction, ledger.TransferOutTransaction:
			if !t.Quantity.Valid {
				subLog.Warn().Object("Transaction", t).Msg("disposal transaction is missing quantity; position will drift")
				continue
			}
			// cost per unit is computed before the decrement
			costPerUnit := decimal.Zero
			if quantity.IsPositive() {
				costPerUnit = totalCost.Div(quantity)
			}
			totalCost = totalCost.Sub(costPerUnit.Mul(t.Quantity.Decimal))
			quantity = quantity.Sub(t.Quantity.Decimal)
		case ledger.SplitTransaction:
			// the quantity field carries the split ratio
			if t.Quantity.Valid && t.Quantity.Decimal.IsPositive() {
				quantity = quantity.Mul(t.Quantity.Decimal)
			}
		}
		// dividends, interest, fees, withholding, adjustments, forex, and
		// cash movements do not change the position
	}

	// clamp drift from bad data at zero
	if quantity.IsNegative() {
		quantity = decimal.Zero
	}
	if totalCost.IsNegative() {
		totalCost = decimal.Zero
	}

	h.Quantity = quantity.Round(ledger.QuantityPrecision)
	h.CostBasis = totalCost.Round(ledger.CashPrecision)
	if h.Quantity.IsPositive() {
		h.AvgCostPerUnit = h.CostBasis.Div(h.Quantity)
	} else {
		h.AvgCostPerUnit = decimal.Zero
	}

	if err := save(ctx, userID, h); err != nil {
		return nil, err
	}

	subLog.Debug().Object("Holding", h).Int("NumTransactions", len(transactions)).Msg("recalculated holding")
	return h, nil
}
