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
	"errors"

	"github.com/finfolio/ff-api/database"
	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrLotMissing = errors.New("could not find tax lot in database")
)

const lotColumns = `
	id,
	holding_id,
	transaction_id,
	quantity::text,
	remaining::text,
	cost_basis::text,
	cost_per_unit::text,
	acquired_at`

func scanLot(row pgx.Row) (*Lot, error) {
	lot := &Lot{}

	var quantity pgtype.Text
	var remaining pgtype.Text
	var costBasis pgtype.Text
	var costPerUnit pgtype.Text

	err := row.Scan(&lot.ID, &lot.HoldingID, &lot.TransactionID, &quantity,
		&remaining, &costBasis, &costPerUnit, &lot.AcquiredAt)
	if err != nil {
		return nil, err
	}

	if lot.Quantity, err = decimal.NewFromString(quantity.String); err != nil {
		return nil, err
	}
	if lot.Remaining, err = decimal.NewFromString(remaining.String); err != nil {
		return nil, err
	}
	if lot.CostBasis, err = decimal.NewFromString(costBasis.String); err != nil {
		return nil, err
	}
	if lot.CostPerUnit, err = decimal.NewFromString(costPerUnit.String); err != nil {
		return nil, err
	}

	return lot, nil
}

// ForTransaction returns the lot created by an acquisition transaction, or
// nil when the transaction has not been processed yet. At most one lot exists
// per transaction.
func ForTransaction(ctx context.Context, userID string, transactionID uuid.UUID) (*Lot, error) {
	subLog := log.With().Str("UserID", userID).Str("TransactionID", transactionID.String()).Logger()

	trx, err := database.TrxForUser(ctx, userID)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("unable to get database transaction object")
		return nil, err
	}

	lotSQL := `SELECT` + lotColumns + ` FROM tax_lots WHERE transaction_id=$1`
	lot, err := scanLot(trx.QueryRow(ctx, lotSQL, transactionID))
	if err != nil {
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		subLog.Error().Stack().Err(err).Str("Query", lotSQL).Msg("could not load tax lot from database")
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not commit transaction to database")
	}

	return lot, nil
}

// OpenForHolding returns the holding's lots that still have unsold shares,
// oldest acquisition first. Ties on the acquisition date are broken by lot id
// so consumption order is deterministic.
func OpenForHolding(ctx context.Context, userID string, holdingID uuid.UUID) ([]*Lot, error) {
	subLog := log.With().Str("UserID", userID).Str("HoldingID", holdingID.String()).Logger()

	trx, err := database.TrxForUser(ctx, userID)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("unable to get database transaction object")
		return nil, err
	}

	lotSQL := `SELECT` + lotColumns + `
	FROM tax_lots
	WHERE holding_id=$1 AND remaining > 0
	ORDER BY acquired_at, id`
	rows, err := trx.Query(ctx, lotSQL, holdingID)
	if err != nil {
		subLog.Error().Stack().Err(err).Str("Query", lotSQL).Msg("could not load tax lots from database")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	lots := make([]*Lot, 0, 100)
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			subLog.Warn().Stack().Err(err).Str("Query", lotSQL).Msg("failed scanning row into lot fields")
			if err := trx.Rollback(ctx); err != nil {
				subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
			}
			return nil, err
		}
		lots = append(lots, lot)
	}

	if err := rows.Err(); err != nil {
		subLog.Warn().Stack().Err(err).Str("Query", lotSQL).Msg("tax lot query read failed")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not commit transaction to database")
	}

	return lots, nil
}

func saveLot(ctx context.Context, userID string, lot *Lot) error {
	subLog := log.With().Str("UserID", userID).Object("Lot", lot).Logger()

	trx, err := database.TrxForUser(ctx, userID)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("unable to get database transaction object")
		return err
	}

	lotSQL := `
	INSERT INTO tax_lots (
		"id",
		"holding_id",
		"transaction_id",
		"quantity",
		"remaining",
		"cost_basis",
		"cost_per_unit",
		"acquired_at",
		"user_id"
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9
	)`
	_, err = trx.Exec(ctx, lotSQL,
		lot.ID,                   // 1
		lot.HoldingID,            // 2
		lot.TransactionID,        // 3
		lot.Quantity.String(),    // 4
		lot.Remaining.String(),   // 5
		lot.CostBasis.String(),   // 6
		lot.CostPerUnit.String(), // 7
		lot.AcquiredAt,           // 8
		userID,                   // 9
	)
	if err != nil {
		subLog.Warn().Stack().Err(err).Str("Query", lotSQL).Msg("failed to save tax lot")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("failed to commit tax lot")
		return err
	}

	return nil
}

// saveRemaining persists a lot decrement in its own database transaction.
// Each consumed lot is written out immediately rather than batched with the
// rest of the sale, so an interrupted consumption leaves the lots that were
// already decremented in their consumed state.
func saveRemaining(ctx context.Context, userID string, lot *Lot) error {
	subLog := log.With().Str("UserID", userID).Str("LotID", lot.ID.String()).Logger()

	trx, err := database.TrxForUser(ctx, userID)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("unable to get database transaction object")
		return err
	}

	updateSQL := `UPDATE tax_lots SET remaining=$2 WHERE id=$1`
	tag, err := trx.Exec(ctx, updateSQL, lot.ID, lot.Remaining.String())
	if err != nil {
		subLog.Error().Stack().Err(err).Str("Query", updateSQL).Msg("could not update lot remaining quantity")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return err
	}

	if tag.RowsAffected() == 0 {
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return ErrLotMissing
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("failed to commit lot update")
		return err
	}

	return nil
}
