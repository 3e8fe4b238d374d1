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
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/finfolio/ff-api/ledger"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// holdingLocks serializes lot consumption per holding. Two concurrent SELLs
// against the same holding would otherwise read the same remaining quantities
// and over-consume a lot. Cross-holding operations do not contend.
var holdingLocks sync.Map

func lockHolding(holdingID uuid.UUID) *sync.Mutex {
	m, _ := holdingLocks.LoadOrStore(holdingID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu
}

// CreateLot opens a tax lot for an acquisition transaction. Only BUY and
// REINVEST_DIVIDEND transactions carrying a quantity and price open lots;
// anything else returns nil without error. Cost basis is quantity * price
// plus acquisition fees. CreateLot is idempotent: when a lot already exists
// for the transaction it is returned unchanged, which makes backfills safe to
// re-run.
func CreateLot(ctx context.Context, userID string, trx *ledger.Transaction) (*Lot, error) {
	subLog := log.With().Str("UserID", userID).Str("TransactionID", trx.ID.String()).Str("Kind", trx.Kind).Logger()

	if !trx.CreatesLot() {
		subLog.Warn().Msg("transaction kind does not open a tax lot")
		return nil, nil
	}

	if !trx.HoldingID.Valid {
		subLog.Warn().Msg("acquisition transaction has no holding; skipping lot creation")
		return nil, nil
	}

	if !trx.Quantity.Valid || !trx.Price.Valid {
		// data-quality signal, not a fatal error
		subLog.Warn().Object("Transaction", trx).Msg("acquisition transaction is missing quantity or price; skipping lot creation")
		return nil, nil
	}

	quantity := trx.Quantity.Decimal
	if !quantity.IsPositive() {
		subLog.Warn().Str("Quantity", quantity.String()).Msg("acquisition transaction has non-positive quantity; skipping lot creation")
		return nil, nil
	}

	existing, err := ForTransaction(ctx, userID, trx.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		subLog.Debug().Object("Lot", existing).Msg("tax lot already exists for transaction")
		return existing, nil
	}

	costBasis := quantity.Mul(trx.Price.Decimal).Add(trx.FeesOrZero()).Round(ledger.CashPrecision)
	lot := &Lot{
		ID:            uuid.New(),
		HoldingID:     trx.HoldingID.UUID,
		TransactionID: trx.ID,
		Quantity:      quantity.Round(ledger.QuantityPrecision),
		Remaining:     quantity.Round(ledger.QuantityPrecision),
		CostBasis:     costBasis,
		CostPerUnit:   costBasis.Div(quantity),
		AcquiredAt:    trx.Date,
	}

	if err := saveLot(ctx, userID, lot); err != nil {
		return nil, err
	}

	subLog.Debug().Object("Lot", lot).Msg("created tax lot")
	return lot, nil
}

// ConsumeLots links a SELL transaction with the holding's open tax lots using
// the first-in, first-out method and computes the realized gain or loss. Each
// consumed lot's remaining quantity is persisted as soon as it is decremented.
// When the open lots cannot cover the full sale the engine consumes what it
// can and leaves the oversold remainder without cost basis; it never invents
// a synthetic lot and never drives a lot's remaining quantity negative. The
// SELL transaction is updated in place with the cost basis used, the realized
// gain/loss, and the quantity-weighted average holding period.
func ConsumeLots(ctx context.Context, userID string, sell *ledger.Transaction) (*RealizedGain, error) {
	subLog := log.With().Str("UserID", userID).Str("TransactionID", sell.ID.String()).Logger()

	if sell.Kind != ledger.SellTransaction {
		subLog.Warn().Str("Kind", sell.Kind).Msg("only SELL transactions consume tax lots")
		return nil, nil
	}

	if !sell.HoldingID.Valid {
		subLog.Warn().Msg("sell transaction has no holding; skipping lot consumption")
		return nil, nil
	}

	if !sell.Quantity.Valid || !sell.Price.Valid {
		// data-quality signal, not a fatal error
		subLog.Warn().Object("Transaction", sell).Msg("sell transaction is missing quantity or price; skipping lot consumption")
		return nil, nil
	}

	// the tax fields are written at most once; a sale that has already been
	// reconciled is returned as recorded so backfill re-runs cannot consume
	// the same lots twice
	if sell.RealizedGainLoss.Valid {
		subLog.Debug().Object("Transaction", sell).Msg("sell transaction already has a realized gain; not consuming lots again")
		return recordedGain(sell), nil
	}

	holdingID := sell.HoldingID.UUID
	mu := lockHolding(holdingID)
	defer mu.Unlock()

	lots, err := OpenForHolding(ctx, userID, holdingID)
	if err != nil {
		return nil, err
	}
	if len(lots) == 0 {
		subLog.Warn().Str("HoldingID", holdingID.String()).Msg("no open tax lots for holding; cannot compute realized gain")
		return nil, nil
	}

	quantity := sell.Quantity.Decimal
	left := quantity
	costBasis := decimal.Zero
	weightedDays := decimal.Zero

	for _, lot := range lots {
		if !left.IsPositive() {
			break
		}

		take := decimal.Min(lot.Remaining, left)
		costBasis = costBasis.Add(lot.CostPerUnit.Mul(take))
		weightedDays = weightedDays.Add(take.Mul(decimal.NewFromInt(daysBetween(lot.AcquiredAt, sell.Date))))

		lot.Remaining = lot.Remaining.Sub(take).Round(ledger.QuantityPrecision)
		if err := saveRemaining(ctx, userID, lot); err != nil {
			// lots decremented before the failure keep their consumed state
			subLog.Error().Stack().Err(err).Object("Lot", lot).Msg("could not persist lot consumption")
			return nil, err
		}

		left = left.Sub(take)
	}

	matched := quantity.Sub(left)
	if left.IsPositive() {
		subLog.Warn().
			Str("HoldingID", holdingID.String()).
			Str("Unmatched", left.String()).
			Str("Matched", matched.String()).
			Msg("sale quantity exceeds open tax lots; realized gain is under-costed for the unmatched remainder")
	}

	costBasis = costBasis.Round(ledger.CashPrecision)
	proceeds := quantity.Mul(sell.Price.Decimal).Sub(sell.FeesOrZero()).Round(ledger.CashPrecision)

	var avgDays int64
	if quantity.IsPositive() {
		avgDays = weightedDays.Div(quantity).Round(0).IntPart()
	}

	result := &RealizedGain{
		TransactionID:     sell.ID,
		HoldingID:         holdingID,
		Proceeds:          proceeds,
		CostBasis:         costBasis,
		GainLoss:          proceeds.Sub(costBasis),
		HoldingPeriodDays: avgDays,
		Matched:           matched,
		Unmatched:         left,
	}

	sell.CostBasisUsed = decimal.NullDecimal{Decimal: result.CostBasis, Valid: true}
	sell.RealizedGainLoss = decimal.NullDecimal{Decimal: result.GainLoss, Valid: true}
	sell.HoldingPeriodDays = sql.NullInt64{Int64: result.HoldingPeriodDays, Valid: true}

	if err := ledger.SaveTaxFields(ctx, userID, sell); err != nil {
		return nil, err
	}

	subLog.Debug().Object("RealizedGain", result).Msg("consumed tax lots")
	return result, nil
}

// recordedGain rebuilds a RealizedGain from the engine fields already stored
// on the sell transaction
func recordedGain(sell *ledger.Transaction) *RealizedGain {
	rg := &RealizedGain{
		TransactionID: sell.ID,
		GainLoss:      sell.RealizedGainLoss.Decimal,
	}
	if sell.HoldingID.Valid {
		rg.HoldingID = sell.HoldingID.UUID
	}
	if sell.CostBasisUsed.Valid {
		rg.CostBasis = sell.CostBasisUsed.Decimal
		rg.Proceeds = rg.CostBasis.Add(rg.GainLoss)
	}
	if sell.HoldingPeriodDays.Valid {
		rg.HoldingPeriodDays = sell.HoldingPeriodDays.Int64
	}
	if sell.Quantity.Valid {
		rg.Matched = sell.Quantity.Decimal
	}
	return rg
}

// daysBetween computes whole days between two dates at date-only granularity;
// partial days never count
func daysBetween(acquired, disposed time.Time) int64 {
	a := time.Date(acquired.Year(), acquired.Month(), acquired.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(disposed.Year(), disposed.Month(), disposed.Day(), 0, 0, 0, 0, time.UTC)
	return int64(b.Sub(a).Hours() / 24)
}
